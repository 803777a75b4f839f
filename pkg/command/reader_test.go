package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type bytesSource struct {
	data []byte
}

func (s *bytesSource) feed(str string) { s.data = append(s.data, str...) }

func (s *bytesSource) Buffered() int { return len(s.data) }

func (s *bytesSource) ReadByte() (byte, error) {
	if len(s.data) == 0 {
		return 0, errors.New("empty")
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, nil
}

func TestLineReader_Lines(t *testing.T) {
	src := &bytesSource{}
	r := NewLineReader(src)

	src.feed("sta")
	_, ok := r.NextLine()
	assert.False(t, ok)
	assert.True(t, r.Pending())

	src.feed("rt\r\n\r\nrate 50\n")
	line, ok := r.NextLine()
	assert.True(t, ok)
	assert.Equal(t, "start", line)
	assert.True(t, r.Pending(), "blank line still waiting")

	line, ok = r.NextLine()
	assert.True(t, ok)
	assert.Equal(t, "rate 50", line)

	_, ok = r.NextLine()
	assert.False(t, ok)
	assert.False(t, r.Pending())
}

func TestLineReader_Truncates(t *testing.T) {
	src := &bytesSource{}
	r := NewLineReader(src)

	src.feed(strings.Repeat("x", MaxLineLength+10) + "\n")
	line, ok := r.NextLine()
	assert.True(t, ok)
	assert.Len(t, line, MaxLineLength)
}

func TestLineReader_Discard(t *testing.T) {
	src := &bytesSource{}
	r := NewLineReader(src)

	src.feed("sto")
	r.NextLine()
	src.feed("p\nshow\n")
	assert.True(t, r.Pending())

	r.Discard()
	assert.False(t, r.Pending())
	_, ok := r.NextLine()
	assert.False(t, ok)
}

func TestLineReader_CRLF(t *testing.T) {
	src := &bytesSource{}
	r := NewLineReader(src)

	src.feed("replay\r\n")
	line, ok := r.NextLine()
	assert.True(t, ok)
	assert.Equal(t, "replay", line)
	assert.False(t, r.Pending())

	// LF arriving after the line was returned.
	src.feed("show\r")
	line, ok = r.NextLine()
	assert.True(t, ok)
	assert.Equal(t, "show", line)
	assert.False(t, r.Pending())
	src.feed("\n")
	assert.False(t, r.Pending())

	// A keypress after a CR-only line is kept.
	src.feed("stop\rx")
	line, ok = r.NextLine()
	assert.True(t, ok)
	assert.Equal(t, "stop", line)
	assert.True(t, r.Pending())
	r.Discard()
	assert.False(t, r.Pending())
}

func TestLineReader_EnterAsKeypress(t *testing.T) {
	src := &bytesSource{}
	r := NewLineReader(src)

	src.feed("show\r\n")
	_, ok := r.NextLine()
	assert.True(t, ok)
	assert.False(t, r.Pending())

	src.feed("\r")
	assert.True(t, r.Pending())
	r.Discard()
	src.feed("\n")
	assert.False(t, r.Pending(), "LF of the Enter key is not a second keypress")

	src.feed("\n")
	assert.True(t, r.Pending())
}
