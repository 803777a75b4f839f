package analog

import (
	"github.com/chewxy/math32"

	"github.com/itohio/govrec/pkg/hal"
)

const (
	// Levels is the number of discrete output levels.
	Levels = 256
	// DefaultFullScale is the output voltage at the highest level.
	DefaultFullScale float32 = 3.3
)

// Output drives a DAC with voltages quantized to Levels steps over [0, full scale].
type Output struct {
	dac       hal.DAC
	fullScale float32
}

// NewOutput creates an output driver. A non-positive fullScale selects DefaultFullScale.
func NewOutput(dac hal.DAC, fullScale float32) *Output {
	if fullScale <= 0 {
		fullScale = DefaultFullScale
	}
	return &Output{dac: dac, fullScale: fullScale}
}

// Level quantizes v without touching the hardware.
func (o *Output) Level(v float32) uint8 {
	v = o.Clamp(v)
	if v >= o.fullScale {
		return Levels - 1
	}
	return uint8(v * (Levels - 1) / o.fullScale)
}

// Clamp limits v to the supported output range.
func (o *Output) Clamp(v float32) float32 {
	return math32.Max(0, math32.Min(v, o.fullScale))
}

// WriteVoltage sets the output to v and returns the level written.
func (o *Output) WriteVoltage(v float32) uint8 {
	level := o.Level(v)
	o.dac.SetLevel(level)
	return level
}

// Reset drives the output to 0 V.
func (o *Output) Reset() {
	o.dac.SetLevel(0)
}

// FullScale returns the voltage of the highest level.
func (o *Output) FullScale() float32 { return o.fullScale }
