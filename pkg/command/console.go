// Package command implements the line-oriented serial command protocol and the
// single-threaded control loop that drives a recorder.
package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/itohio/govrec/pkg/recorder"
)

// Version is reported in the boot banner. Set with -ldflags "-X".
var Version = "dev"

const (
	// DefaultIdle is the pause between control loop iterations.
	DefaultIdle = time.Millisecond
	// DefaultPageSize is the number of dump lines between "press any key" pauses.
	DefaultPageSize = 20
	// DefaultBootSettle is the wait before the boot-time offset calibration.
	DefaultBootSettle = time.Second

	progressEvery  = 100
	replayLogEvery = 50
	replayLogDelta = 0.1
)

// Options tunes the console. Zero values are valid: no paging, no boot wait.
type Options struct {
	PageSize    int           // 0 disables paging of "show"
	Idle        time.Duration // pause between loop iterations
	BootSettle  time.Duration // wait before boot calibration
	InputLabel  string        // where to connect the source, e.g. "A1"
	OutputLabel string        // where the replay appears, e.g. "A0 (DAC)"
}

// Console reads commands, drives a Recorder and writes the text responses.
type Console struct {
	rec  *recorder.Recorder
	w    io.Writer
	opts Options
	cmds []entry
}

// New creates a console writing to w.
func New(rec *recorder.Recorder, w io.Writer, opts Options) *Console {
	if opts.Idle <= 0 {
		opts.Idle = DefaultIdle
	}
	c := &Console{rec: rec, w: w, opts: opts}
	c.cmds = c.table()
	return c
}

// Boot prints the banner, calibrates the input offset and shows help.
// The input should be grounded while this runs.
func (c *Console) Boot() {
	c.println("=== Voltage Recorder ===")
	c.printf("Version: %s\n", Version)
	c.println("Initializing...")
	c.println("Auto-calibrating ADC offset.")
	c.rec.Clock().Sleep(c.opts.BootSettle)
	c.calibrate()
	c.println("Setup complete!")
	c.help()
	c.rec.Ready()
}

// Step handles at most one waiting line and then runs one acquisition tick.
func (c *Console) Step(src LineSource) {
	if line, ok := src.NextLine(); ok {
		c.Handle(line, src)
	}
	c.tick()
}

// Run repeats Step until ctx is cancelled, pausing Options.Idle between iterations.
func (c *Console) Run(ctx context.Context, src LineSource) error {
	clock := c.rec.Clock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Step(src)
		clock.Sleep(c.opts.Idle)
	}
}

func (c *Console) tick() {
	switch c.rec.Tick() {
	case recorder.TickSampled:
		if n := c.rec.Store().Len(); n%progressEvery == 0 {
			c.printf("Recorded %d samples...\n", n)
		}
	case recorder.TickFull:
		c.println("Buffer full! Stopping recording.")
		c.printStopped(c.rec.Summary())
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.w, s)
}
