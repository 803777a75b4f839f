package recorder

import "time"

// TickEvent is the outcome of one acquisition tick.
type TickEvent int

const (
	// TickIdle means no recording is active.
	TickIdle TickEvent = iota
	// TickWaiting means the next sample is not due yet.
	TickWaiting
	// TickSampled means one sample was appended.
	TickSampled
	// TickFull means the store filled up and recording stopped.
	TickFull
)

// Summary describes the most recent recording session.
type Summary struct {
	Samples  int
	Duration time.Duration
}

// Start begins a new recording, discarding stored samples.
func (r *Recorder) Start() error {
	if r.recording {
		return ErrAlreadyRecording
	}

	now := r.clock.Now()
	r.store.Clear()
	r.recording = true
	r.ended = false
	r.startTime = now
	r.endTime = now
	r.lastSample = now
	return nil
}

// Stop ends the active recording.
func (r *Recorder) Stop() (Summary, error) {
	if !r.recording {
		return Summary{}, ErrNotRecording
	}
	r.finish()
	return r.Summary(), nil
}

// Summary returns sample count and duration of the current or last session.
// While recording, the duration runs up to now.
func (r *Recorder) Summary() Summary {
	end := r.endTime
	if r.recording {
		end = r.clock.Now()
	}
	return Summary{Samples: r.store.Len(), Duration: end - r.startTime}
}

// Interval returns the acquisition interval. It is computed in whole
// milliseconds, so rates above 1000 Hz yield zero and sample on every tick.
func (r *Recorder) Interval() time.Duration {
	return time.Duration(1000/r.rate) * time.Millisecond
}

// Tick runs one step of the acquisition loop. It must be called on every
// iteration of the control loop.
//
// The last-sample time is re-anchored to the tick time rather than the ideal
// schedule, so each sample accumulates the tick latency as drift.
func (r *Recorder) Tick() TickEvent {
	if !r.recording {
		return TickIdle
	}

	now := r.clock.Now()
	if now-r.lastSample < r.Interval() {
		return TickWaiting
	}

	v := r.in.ReadVoltage(r.oversampling)
	if !r.store.Append(v) {
		r.finish()
		return TickFull
	}
	r.lastSample = now

	n := r.store.Len()
	r.led.Set(n%100 < 50)

	if r.store.Full() {
		r.finish()
		return TickFull
	}
	return TickSampled
}

func (r *Recorder) finish() {
	r.recording = false
	r.ended = true
	r.endTime = r.clock.Now()
	r.led.Set(true)
}
