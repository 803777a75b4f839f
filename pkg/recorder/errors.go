package recorder

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRecording is returned by Start while a recording is running.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when nothing is being recorded.
	ErrNotRecording = errors.New("not currently recording")
	// ErrNoData is returned when the store holds no samples.
	ErrNoData = errors.New("no data recorded")
	// ErrRecording is returned by operations that need the recorder idle.
	ErrRecording = errors.New("recording in progress")
)

// RangeError reports a setting outside its valid range. The previous value is kept.
type RangeError struct {
	Name  string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s %d (%d-%d)", e.Name, e.Value, e.Min, e.Max)
}
