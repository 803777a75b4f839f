// Package hal defines the small set of hardware capabilities the recorder needs.
// Board code implements them on top of TinyGo's machine package; pkg/sim
// implements them for tests and the host loopback device.
package hal

import "time"

// ADC reads one raw conversion from the analog input.
type ADC interface {
	ReadRaw() uint16
}

// DAC commits an 8-bit level to the analog output.
type DAC interface {
	SetLevel(level uint8)
}

// Indicator is a single status output, usually an LED.
type Indicator interface {
	Set(on bool)
}

// Clock is the tick source used for pacing.
// Now returns monotonic time since an arbitrary origin (boot).
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// Input reports whether new input is waiting on the command link.
// Discard drops everything that is waiting.
type Input interface {
	Pending() bool
	Discard()
}

// SystemClock is a Clock backed by the runtime timer.
type SystemClock struct {
	boot time.Time
}

// NewSystemClock creates a clock whose origin is now.
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

// Now returns time elapsed since the clock was created.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.boot)
}

// Sleep blocks for d.
func (c *SystemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// NopIndicator ignores all updates.
type NopIndicator struct{}

// Set does nothing.
func (NopIndicator) Set(bool) {}

// NoInput never has anything pending.
type NoInput struct{}

// Pending always reports false.
func (NoInput) Pending() bool { return false }

// Discard does nothing.
func (NoInput) Discard() {}

var (
	_ Clock     = (*SystemClock)(nil)
	_ Indicator = NopIndicator{}
	_ Input     = NoInput{}
)
