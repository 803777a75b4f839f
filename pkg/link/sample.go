package link

import (
	"fmt"
	"strconv"
	"strings"
)

// Sample is one row of a "show" dump.
type Sample struct {
	Index     int
	Voltage   float32 // V
	ElapsedMs float32 // nominal time since the start of the recording
}

// ParseSampleLine parses a dump row.
// Format: index,voltage,elapsed_ms
// Example: 12,1.6500,120.0
func ParseSampleLine(line string) (Sample, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Sample{}, fmt.Errorf("invalid line format: expected 3 comma-separated values, got %d", len(parts))
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return Sample{}, fmt.Errorf("invalid index: %w", err)
	}
	if index < 0 {
		return Sample{}, fmt.Errorf("index out of range: %d", index)
	}

	voltage, err := strconv.ParseFloat(parts[1], 32)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid voltage: %w", err)
	}

	elapsed, err := strconv.ParseFloat(parts[2], 32)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid elapsed time: %w", err)
	}

	return Sample{
		Index:     index,
		Voltage:   float32(voltage),
		ElapsedMs: float32(elapsed),
	}, nil
}
