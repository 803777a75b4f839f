//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// machine.ADC.Get scales every conversion to 16 bits.
	ADC_SHIFT = 16 - ADC_RESOLUTION

	// Analog pins
	PIN_ADC = machine.A1 // Voltage input (0-3.3V max!)
	PIN_DAC = machine.A0 // DAC output used for replay

	// Status LED. The XIAO user LED is wired active low.
	PIN_LED        = machine.LED
	LED_ACTIVE_LOW = true

	// Serial configuration
	// A "show" dump line is "4999,3.2999,49990.0\n" = ~20 bytes. At the highest
	// rate a recording is dumped after it ends, so throughput only bounds how long
	// a dump of 5000 samples takes: ~100 KB / 11.5 KB/s = ~9 s at 115200 baud.
	UART_BAUD_RATE = 115200

	// Lines between "press any key" pauses of "show"
	PAGE_SIZE = 20

	// Connection labels printed by "help"
	INPUT_LABEL  = "A1"
	OUTPUT_LABEL = "A0 (DAC)"
)
