package export

import "github.com/itohio/govrec/pkg/link"

// Decimate reduces samples to at most maxPoints by picking evenly spaced rows.
// It reuses dst when it has enough capacity. maxPoints <= 0 keeps everything.
func Decimate(dst []link.Sample, samples []link.Sample, maxPoints int) []link.Sample {
	if maxPoints <= 0 || len(samples) <= maxPoints {
		if cap(dst) < len(samples) {
			dst = make([]link.Sample, 0, len(samples))
		}
		return append(dst[:0], samples...)
	}

	if cap(dst) < maxPoints {
		dst = make([]link.Sample, 0, maxPoints)
	}
	dst = dst[:0]

	step := float64(len(samples)) / float64(maxPoints)
	for i := range maxPoints {
		dst = append(dst, samples[int(float64(i)*step)])
	}
	return dst
}
