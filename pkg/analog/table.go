package analog

import (
	"fmt"
	"sort"
)

// Point maps a raw ADC code to the voltage it represents.
type Point struct {
	Raw        uint16
	MilliVolts float32
}

// Table is a piecewise-linear raw-code to millivolt characteristic.
// Codes outside the table are extrapolated from the nearest segment.
type Table struct {
	points []Point
}

// NewTable builds a characteristic from at least two points with distinct raw codes.
func NewTable(points []Point) (Table, error) {
	if len(points) < 2 {
		return Table{}, fmt.Errorf("calibration table needs at least 2 points, got %d", len(points))
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Raw < sorted[j].Raw })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Raw == sorted[i-1].Raw {
			return Table{}, fmt.Errorf("duplicate raw code %d in calibration table", sorted[i].Raw)
		}
	}

	return Table{points: sorted}, nil
}

// LinearTable is the ideal characteristic of an ADC with the given resolution
// whose full-scale code equals fullScaleMV.
func LinearTable(resolutionBits int, fullScaleMV float32) Table {
	if resolutionBits <= 0 || resolutionBits > 16 {
		resolutionBits = DefaultResolution
	}
	maxCode := uint16(1<<resolutionBits - 1)
	return Table{points: []Point{
		{Raw: 0, MilliVolts: 0},
		{Raw: maxCode, MilliVolts: fullScaleMV},
	}}
}

// MilliVolts converts a raw code.
func (t Table) MilliVolts(raw uint16) float32 {
	if len(t.points) < 2 {
		return 0
	}

	// Find the segment containing raw, clamping to the outer segments.
	i := sort.Search(len(t.points), func(i int) bool { return t.points[i].Raw >= raw })
	switch {
	case i == 0:
		i = 1
	case i >= len(t.points):
		i = len(t.points) - 1
	}

	lo, hi := t.points[i-1], t.points[i]
	slope := (hi.MilliVolts - lo.MilliVolts) / float32(int(hi.Raw)-int(lo.Raw))
	return lo.MilliVolts + slope*float32(int(raw)-int(lo.Raw))
}

// Points returns a copy of the table's points in raw-code order.
func (t Table) Points() []Point {
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}
