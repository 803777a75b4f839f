package analog

import (
	"time"

	"github.com/itohio/govrec/pkg/hal"
)

const (
	// DefaultResolution is the ADC resolution in bits (12-bit = 0-4095).
	DefaultResolution = 12
	// DefaultReferenceMV is the full-scale input voltage in millivolts.
	DefaultReferenceMV = 3300
	// DefaultSettle is the pause between oversampled conversions.
	DefaultSettle = 10 * time.Microsecond
)

// Input reads calibrated voltages from an ADC.
type Input struct {
	adc    hal.ADC
	clock  hal.Clock
	table  Table
	settle time.Duration
	offset float32
}

// NewInput creates an input driver. clock may be nil, in which case no settle
// delay is applied between conversions.
func NewInput(adc hal.ADC, table Table, clock hal.Clock, settle time.Duration) *Input {
	if clock == nil {
		settle = 0
	}
	return &Input{
		adc:    adc,
		clock:  clock,
		table:  table,
		settle: settle,
	}
}

// ReadVoltage averages n conversions and returns the offset-corrected voltage in volts.
// Results below zero are clamped to zero.
func (in *Input) ReadVoltage(n int) float32 {
	v := in.measure(n) - in.offset
	if v < 0 {
		return 0
	}
	return v
}

// Calibrate measures the voltage present on the input (which should be grounded)
// and stores it as the zero offset. It returns the new offset.
func (in *Input) Calibrate(n int) float32 {
	in.offset = in.measure(n)
	return in.offset
}

// Offset returns the current zero offset in volts.
func (in *Input) Offset() float32 { return in.offset }

// SetOffset replaces the zero offset.
func (in *Input) SetOffset(v float32) { in.offset = v }

// Table returns the calibration characteristic.
func (in *Input) Table() Table { return in.table }

// measure returns the uncorrected voltage of n averaged conversions.
func (in *Input) measure(n int) float32 {
	if n < 1 {
		n = 1
	}

	var total uint32
	for range n {
		total += uint32(in.adc.ReadRaw())
		if in.settle > 0 {
			in.clock.Sleep(in.settle)
		}
	}

	// Round to nearest
	average := (total + uint32(n)/2) / uint32(n)
	return in.table.MilliVolts(uint16(average)) / 1000
}
