// Package sim provides simulated hardware for tests and for the host loopback device.
package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/govrec/pkg/hal"
)

// Clock is a manual clock. Sleep advances time instantly, which makes pacing
// loops deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Duration
}

// Now returns the simulated time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the simulated time by d.
func (c *Clock) Sleep(d time.Duration) {
	if d > 0 {
		c.Advance(d)
	}
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Signal describes a simulated input waveform: bias + amplitude*sin(2*pi*f*t) + noise.
type Signal struct {
	Bias       float64 // V
	Amplitude  float64 // V
	Frequency  float64 // Hz
	NoiseLevel float64 // V, peak
}

// ADC samples a Signal against a clock and reports raw codes.
type ADC struct {
	clock      hal.Clock
	signal     Signal
	resolution int
	vref       float64
	rng        *rand.Rand
}

// NewADC creates a waveform ADC. vref is the full-scale voltage in volts.
func NewADC(clock hal.Clock, signal Signal, resolution int, vref float64) *ADC {
	return &ADC{
		clock:      clock,
		signal:     signal,
		resolution: resolution,
		vref:       vref,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// ReadRaw converts the signal at the current simulated time.
func (a *ADC) ReadRaw() uint16 {
	t := a.clock.Now().Seconds()
	v := a.signal.Bias + a.signal.Amplitude*math.Sin(2*math.Pi*a.signal.Frequency*t)
	if a.signal.NoiseLevel > 0 {
		v += (a.rng.Float64()*2 - 1) * a.signal.NoiseLevel
	}
	return Code(v, a.resolution, a.vref)
}

// Code converts a voltage to the raw code of an ideal ADC, clamping to its range.
func Code(v float64, resolution int, vref float64) uint16 {
	maxCode := float64(uint32(1)<<resolution - 1)
	code := v / vref * maxCode
	if code < 0 {
		code = 0
	} else if code > maxCode {
		code = maxCode
	}
	return uint16(code + 0.5)
}

// FixedADC always returns the same code.
type FixedADC uint16

// ReadRaw returns the fixed code.
func (a FixedADC) ReadRaw() uint16 { return uint16(a) }

// SequenceADC returns codes from a list, repeating the last one once exhausted.
type SequenceADC struct {
	Codes []uint16
	pos   int
}

// ReadRaw returns the next code.
func (a *SequenceADC) ReadRaw() uint16 {
	if len(a.Codes) == 0 {
		return 0
	}
	code := a.Codes[a.pos]
	if a.pos < len(a.Codes)-1 {
		a.pos++
	}
	return code
}

// DAC records every level written to it.
type DAC struct {
	mu     sync.Mutex
	levels []uint8
}

// SetLevel records level.
func (d *DAC) SetLevel(level uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels = append(d.levels, level)
}

// Levels returns a copy of all recorded writes.
func (d *DAC) Levels() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint8, len(d.levels))
	copy(out, d.levels)
	return out
}

// Writes returns the number of writes.
func (d *DAC) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.levels)
}

// Level returns the last written level.
func (d *DAC) Level() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.levels) == 0 {
		return 0
	}
	return d.levels[len(d.levels)-1]
}

// LED records the indicator state.
type LED struct {
	On      bool
	Changes int
}

// Set updates the state.
func (l *LED) Set(on bool) {
	if l.On != on {
		l.Changes++
	}
	l.On = on
}

// Input simulates a key press arriving mid-operation. The zero value never
// becomes pending.
type Input struct {
	armed     bool
	after     int
	polls     int
	Discarded int
}

// PressAfter returns an Input that becomes pending after n polls.
func PressAfter(n int) *Input {
	return &Input{armed: true, after: n}
}

// Pending reports whether the simulated key press has arrived.
func (in *Input) Pending() bool {
	if !in.armed {
		return false
	}
	in.polls++
	return in.polls > in.after
}

// Discard consumes the key press.
func (in *Input) Discard() {
	in.Discarded++
	in.armed = false
}

var (
	_ hal.Clock     = (*Clock)(nil)
	_ hal.ADC       = (*ADC)(nil)
	_ hal.ADC       = FixedADC(0)
	_ hal.ADC       = (*SequenceADC)(nil)
	_ hal.DAC       = (*DAC)(nil)
	_ hal.Indicator = (*LED)(nil)
	_ hal.Input     = (*Input)(nil)
)
