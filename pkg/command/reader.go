package command

// ByteSource is a non-blocking byte stream such as a UART or USB CDC port.
type ByteSource interface {
	Buffered() int
	ReadByte() (byte, error)
}

// MaxLineLength is the longest command line a LineReader keeps. Longer lines
// are truncated.
const MaxLineLength = 64

// LineReader assembles command lines from a ByteSource without blocking.
// CR, LF and CRLF all end a line.
type LineReader struct {
	src ByteSource
	buf [MaxLineLength]byte
	pos int

	// skipLF is set after a CR so that the LF of a CRLF pair is dropped
	// even when it arrives later.
	skipLF  bool
	held    byte
	hasHeld bool
}

// NewLineReader creates a reader over src.
func NewLineReader(src ByteSource) *LineReader {
	return &LineReader{src: src}
}

// NextLine consumes the available bytes and returns a line once a line ending
// arrives. Empty lines are skipped.
func (r *LineReader) NextLine() (string, bool) {
	r.dropLF()
	for {
		b, ok := r.readByte()
		if !ok {
			return "", false
		}
		if b == '\n' || b == '\r' {
			r.skipLF = b == '\r'
			if r.pos == 0 {
				continue
			}
			line := string(r.buf[:r.pos])
			r.pos = 0
			r.dropLF()
			return line, true
		}
		r.skipLF = false
		if r.pos < len(r.buf) {
			r.buf[r.pos] = b
			r.pos++
		}
	}
}

// Pending reports whether any input, complete or not, is waiting. The LF
// completing a CRLF line ending does not count.
func (r *LineReader) Pending() bool {
	r.dropLF()
	return r.pos > 0 || r.buffered()
}

// Discard drops the partial line and everything buffered.
func (r *LineReader) Discard() {
	r.pos = 0
	for {
		b, ok := r.readByte()
		if !ok {
			return
		}
		r.skipLF = b == '\r'
	}
}

func (r *LineReader) buffered() bool {
	return r.hasHeld || r.src.Buffered() > 0
}

func (r *LineReader) readByte() (byte, bool) {
	if r.hasHeld {
		r.hasHeld = false
		return r.held, true
	}
	if r.src.Buffered() == 0 {
		return 0, false
	}
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

// dropLF consumes the LF following a CR line ending. Any other byte is kept.
func (r *LineReader) dropLF() {
	if !r.skipLF {
		return
	}
	b, ok := r.readByte()
	if !ok {
		return
	}
	r.skipLF = false
	if b != '\n' {
		r.held, r.hasHeld = b, true
	}
}

var _ LineSource = (*LineReader)(nil)
