package command

import (
	"context"

	"github.com/itohio/govrec/pkg/hal"
)

// LineSource yields complete command lines without blocking. Pending and
// Discard cover bytes that are not yet a full line as well.
type LineSource interface {
	hal.Input
	NextLine() (string, bool)
}

// Queue is a channel-backed LineSource for hosted consoles.
type Queue struct {
	lines chan string
}

// NewQueue creates a queue buffering up to size lines.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{lines: make(chan string, size)}
}

// Push enqueues a line, blocking while the queue is full.
func (q *Queue) Push(ctx context.Context, line string) error {
	select {
	case q.lines <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextLine dequeues a line if one is waiting.
func (q *Queue) NextLine() (string, bool) {
	select {
	case line := <-q.lines:
		return line, true
	default:
		return "", false
	}
}

// Pending reports whether a line is waiting.
func (q *Queue) Pending() bool {
	return len(q.lines) > 0
}

// Discard drops all waiting lines.
func (q *Queue) Discard() {
	for {
		select {
		case <-q.lines:
		default:
			return
		}
	}
}

var _ LineSource = (*Queue)(nil)
