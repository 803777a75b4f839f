//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"

	"github.com/itohio/govrec/pkg/analog"
	"github.com/itohio/govrec/pkg/command"
	"github.com/itohio/govrec/pkg/hal"
	"github.com/itohio/govrec/pkg/recorder"
)

var adc machine.ADC

// adcInput reads the input pin as a 12-bit code.
type adcInput struct{}

func (adcInput) ReadRaw() uint16 {
	return adc.Get() >> ADC_SHIFT
}

// dacOutput drives the DAC with an 8-bit level.
type dacOutput struct{}

func (dacOutput) SetLevel(level uint8) {
	machine.DAC0.Set(uint16(level) << 8)
}

type led struct{}

func (led) Set(on bool) {
	PIN_LED.Set(on != LED_ACTIVE_LOW)
}

func main() {
	// Configure the LED and the analog pins
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adc = machine.ADC{Pin: PIN_ADC}
	adc.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	machine.DAC0.Configure(machine.DACConfig{})

	// Configure the console port
	serial := machine.Serial
	serial.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	clock := hal.NewSystemClock()
	input := analog.NewInput(adcInput{},
		analog.LinearTable(ADC_RESOLUTION, ADC_REFERENCE_MV),
		clock, analog.DefaultSettle)

	rec := recorder.New(recorder.DefaultSettings(), recorder.Hardware{
		Input:  input,
		Output: analog.NewOutput(dacOutput{}, analog.DefaultFullScale),
		Clock:  clock,
		LED:    led{},
	})

	console := command.New(rec, serial, command.Options{
		PageSize:    PAGE_SIZE,
		BootSettle:  command.DefaultBootSettle,
		InputLabel:  INPUT_LABEL,
		OutputLabel: OUTPUT_LABEL,
	})
	lines := command.NewLineReader(serial)

	console.Boot()

	// Main loop
	for {
		console.Step(lines)
		clock.Sleep(command.DefaultIdle)
	}
}
