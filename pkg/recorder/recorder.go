// Package recorder holds the recording session state and the paced
// acquisition and playback loops. A Recorder is owned by a single control
// loop and is not safe for concurrent use.
package recorder

import (
	"time"

	"github.com/itohio/govrec/pkg/analog"
	"github.com/itohio/govrec/pkg/hal"
	"github.com/itohio/govrec/pkg/store"
)

const (
	MinRate = 1
	MaxRate = 10000
	// DefaultRate is the sample rate in Hz.
	DefaultRate = 100
	// SafeRate is the highest rate at which tick-paced timing stays accurate.
	SafeRate = 200

	MinOversampling     = 1
	MaxOversampling     = 1024
	DefaultOversampling = 64
)

// Settings is the initial configuration. Out-of-range values fall back to defaults.
type Settings struct {
	Capacity     int
	Rate         int
	Oversampling int
	SafeRate     int
}

// DefaultSettings returns the board defaults.
func DefaultSettings() Settings {
	return Settings{
		Capacity:     store.DefaultCapacity,
		Rate:         DefaultRate,
		Oversampling: DefaultOversampling,
		SafeRate:     SafeRate,
	}
}

func (s *Settings) ensureDefaults() {
	def := DefaultSettings()
	if s.Capacity <= 0 {
		s.Capacity = def.Capacity
	}
	if s.Rate < MinRate || s.Rate > MaxRate {
		s.Rate = def.Rate
	}
	if s.Oversampling < MinOversampling || s.Oversampling > MaxOversampling {
		s.Oversampling = def.Oversampling
	}
	if s.SafeRate <= 0 {
		s.SafeRate = def.SafeRate
	}
}

// Hardware bundles the peripherals a Recorder drives.
type Hardware struct {
	Input  *analog.Input
	Output *analog.Output
	Clock  hal.Clock
	LED    hal.Indicator // optional
}

// Recorder owns the sample store, the session state and the drivers.
type Recorder struct {
	in    *analog.Input
	out   *analog.Output
	clock hal.Clock
	led   hal.Indicator

	store        *store.Store
	rate         int
	oversampling int
	safeRate     int

	recording  bool
	ended      bool
	startTime  time.Duration
	endTime    time.Duration
	lastSample time.Duration
}

// New creates an idle recorder with an empty store.
func New(settings Settings, hw Hardware) *Recorder {
	settings.ensureDefaults()

	led := hw.LED
	if led == nil {
		led = hal.NopIndicator{}
	}

	return &Recorder{
		in:           hw.Input,
		out:          hw.Output,
		clock:        hw.Clock,
		led:          led,
		store:        store.New(settings.Capacity),
		rate:         settings.Rate,
		oversampling: settings.Oversampling,
		safeRate:     settings.SafeRate,
	}
}

// Store exposes the sample buffer for reading.
func (r *Recorder) Store() *store.Store { return r.store }

// Clock returns the pacing clock.
func (r *Recorder) Clock() hal.Clock { return r.clock }

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool { return r.recording }

// Ended reports whether a session has finished since the last Start, which is
// when the end timestamp becomes meaningful.
func (r *Recorder) Ended() bool { return r.ended }

// Rate returns the sample rate in Hz.
func (r *Recorder) Rate() int { return r.rate }

// SetRate changes the sample rate. Out-of-range values are rejected with a *RangeError.
func (r *Recorder) SetRate(hz int) error {
	if hz < MinRate || hz > MaxRate {
		return &RangeError{Name: "sample rate", Value: hz, Min: MinRate, Max: MaxRate}
	}
	r.rate = hz
	return nil
}

// AboveSafeRate reports whether the current rate exceeds the accurate timing range.
func (r *Recorder) AboveSafeRate() bool { return r.rate > r.safeRate }

// SafeRate returns the accurate timing limit in Hz.
func (r *Recorder) SafeRate() int { return r.safeRate }

// Oversampling returns the number of conversions averaged per reading.
func (r *Recorder) Oversampling() int { return r.oversampling }

// SetOversampling changes the averaging count. Out-of-range values are rejected with a *RangeError.
func (r *Recorder) SetOversampling(n int) error {
	if n < MinOversampling || n > MaxOversampling {
		return &RangeError{Name: "ADC samples", Value: n, Min: MinOversampling, Max: MaxOversampling}
	}
	r.oversampling = n
	return nil
}

// Clear empties the store. An active recording keeps going from index 0.
func (r *Recorder) Clear() {
	r.store.Clear()
}

// Read takes one on-demand reading.
func (r *Recorder) Read() float32 {
	return r.in.ReadVoltage(r.oversampling)
}

// Calibrate re-measures the zero offset; the input should be grounded.
func (r *Recorder) Calibrate() float32 {
	return r.in.Calibrate(r.oversampling)
}

// OutputFullScale returns the highest voltage the output can produce.
func (r *Recorder) OutputFullScale() float32 { return r.out.FullScale() }

// Offset returns the current zero offset in volts.
func (r *Recorder) Offset() float32 { return r.in.Offset() }

// Ready drives the indicator to its idle state.
func (r *Recorder) Ready() {
	r.led.Set(true)
}

// Status is a snapshot of the recorder state.
type Status struct {
	Recording    bool
	Samples      int
	Capacity     int
	Rate         int
	Oversampling int
	Offset       float32
	Voltage      float32 // live reading
	MemoryBytes  int
	Stats        store.Stats
	HasStats     bool
	Duration     time.Duration // zero unless a finished session has end > start
}

// Status reports the current state, taking one live reading.
func (r *Recorder) Status() Status {
	st := Status{
		Recording:    r.recording,
		Samples:      r.store.Len(),
		Capacity:     r.store.Cap(),
		Rate:         r.rate,
		Oversampling: r.oversampling,
		Offset:       r.in.Offset(),
		MemoryBytes:  r.store.SizeBytes(),
	}
	st.Voltage = r.Read()
	st.Stats, st.HasStats = r.store.Stats()
	st.Duration = r.sessionDuration()
	return st
}

func (r *Recorder) sessionDuration() time.Duration {
	if r.ended && r.endTime > r.startTime {
		return r.endTime - r.startTime
	}
	return 0
}
