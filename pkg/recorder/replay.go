package recorder

import (
	"time"

	"github.com/itohio/govrec/pkg/hal"
)

// DivergenceLimit is the relative difference between replay and expected
// duration above which the replay is flagged.
const DivergenceLimit = 0.2

// ReplayStep describes one output write.
type ReplayStep struct {
	Index int
	Volts float32 // clamped to the output range
	Level uint8
}

// ReplayReport summarises a finished replay.
type ReplayReport struct {
	Played      int
	Interrupted bool
	Elapsed     time.Duration
	Expected    time.Duration
	Diverged    bool
}

// Replay drives the output from the stored samples at the configured rate.
// Step deadlines are anchored to the replay start so per-step latency does not
// accumulate. cancel is polled before every step; whatever is pending when the
// replay ends is discarded. observe, if not nil, sees every step.
func (r *Recorder) Replay(cancel hal.Input, observe func(ReplayStep)) (ReplayReport, error) {
	if r.recording {
		return ReplayReport{}, ErrRecording
	}
	n := r.store.Len()
	if n == 0 {
		return ReplayReport{}, ErrNoData
	}
	if cancel == nil {
		cancel = hal.NoInput{}
	}

	interval := time.Second / time.Duration(r.rate)
	start := r.clock.Now()

	var report ReplayReport
	for i, v := range r.store.All() {
		if cancel.Pending() {
			report.Interrupted = true
			break
		}

		v = r.out.Clamp(v)
		level := r.out.WriteVoltage(v)
		if observe != nil {
			observe(ReplayStep{Index: i, Volts: v, Level: level})
		}
		report.Played++

		deadline := start + time.Duration(i+1)*interval
		if wait := deadline - r.clock.Now(); wait > 0 {
			r.clock.Sleep(wait)
		}
	}

	report.Elapsed = r.clock.Now() - start
	cancel.Discard()
	r.out.Reset()

	report.Expected = r.expectedDuration(n)
	diff := report.Elapsed - report.Expected
	if diff < 0 {
		diff = -diff
	}
	report.Diverged = float64(diff) > DivergenceLimit*float64(report.Expected)
	return report, nil
}

// expectedDuration prefers the measured session length and falls back to
// the nominal n/rate.
func (r *Recorder) expectedDuration(n int) time.Duration {
	if d := r.sessionDuration(); d > 0 {
		return d
	}
	return time.Duration(n) * time.Second / time.Duration(r.rate)
}
