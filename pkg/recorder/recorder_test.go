package recorder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/govrec/pkg/analog"
	"github.com/itohio/govrec/pkg/hal"
	"github.com/itohio/govrec/pkg/sim"
)

type rig struct {
	clock *sim.Clock
	dac   *sim.DAC
	led   *sim.LED
	rec   *Recorder
}

// newRig builds a recorder on a 1 mV/code ADC without settle delays so that
// simulated time only moves when the test or a pacing wait moves it.
func newRig(settings Settings, adc hal.ADC) *rig {
	clock := &sim.Clock{}
	dac := &sim.DAC{}
	led := &sim.LED{}
	rec := New(settings, Hardware{
		Input:  analog.NewInput(adc, analog.LinearTable(12, 4095), nil, 0),
		Output: analog.NewOutput(dac, 3.3),
		Clock:  clock,
		LED:    led,
	})
	return &rig{clock: clock, dac: dac, led: led, rec: rec}
}

func TestNew_Defaults(t *testing.T) {
	r := newRig(Settings{Rate: 0, Oversampling: 5000}, sim.FixedADC(0)).rec

	assert.Equal(t, DefaultRate, r.Rate())
	assert.Equal(t, DefaultOversampling, r.Oversampling())
	assert.Equal(t, 5000, r.Store().Cap())
	assert.Equal(t, SafeRate, r.SafeRate())
	assert.False(t, r.Recording())
}

func TestSetRate(t *testing.T) {
	r := newRig(DefaultSettings(), sim.FixedADC(0)).rec

	for _, hz := range []int{1, 2, 50, 200, 201, 9999, 10000} {
		require.NoError(t, r.SetRate(hz))
		assert.Equal(t, hz, r.Rate())
	}

	require.NoError(t, r.SetRate(50))
	for _, hz := range []int{0, -1, 10001, 1 << 20} {
		err := r.SetRate(hz)
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, MinRate, rangeErr.Min)
		assert.Equal(t, MaxRate, rangeErr.Max)
		assert.Equal(t, 50, r.Rate(), "prior rate must be retained")
	}
}

func TestSetOversampling(t *testing.T) {
	r := newRig(DefaultSettings(), sim.FixedADC(0)).rec

	for _, n := range []int{1, 16, 1024} {
		require.NoError(t, r.SetOversampling(n))
		assert.Equal(t, n, r.Oversampling())
	}

	require.NoError(t, r.SetOversampling(32))
	err := r.SetOversampling(2000)
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 2000, rangeErr.Value)
	assert.Contains(t, err.Error(), "1-1024")
	assert.Equal(t, 32, r.Oversampling())

	assert.Error(t, r.SetOversampling(0))
	assert.Equal(t, 32, r.Oversampling())
}

func TestAboveSafeRate(t *testing.T) {
	r := newRig(DefaultSettings(), sim.FixedADC(0)).rec

	require.NoError(t, r.SetRate(200))
	assert.False(t, r.AboveSafeRate())
	require.NoError(t, r.SetRate(201))
	assert.True(t, r.AboveSafeRate())
}

func TestStartStop_StateConflicts(t *testing.T) {
	r := newRig(DefaultSettings(), sim.FixedADC(0)).rec

	_, err := r.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)

	require.NoError(t, r.Start())
	assert.True(t, r.Recording())
	assert.ErrorIs(t, r.Start(), ErrAlreadyRecording)

	_, err = r.Stop()
	require.NoError(t, err)
	assert.False(t, r.Recording())
}

func TestStart_ResetsStore(t *testing.T) {
	g := newRig(Settings{Rate: 1000}, sim.FixedADC(500))
	r := g.rec

	require.NoError(t, r.Start())
	for range 5 {
		g.clock.Advance(time.Millisecond)
		r.Tick()
	}
	_, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, 5, r.Store().Len())

	require.NoError(t, r.Start())
	assert.Equal(t, 0, r.Store().Len(), "start clears before the first sample")
}

func TestScenario_Rate50ThreeTicks(t *testing.T) {
	g := newRig(DefaultSettings(), sim.FixedADC(1000))
	r := g.rec
	require.NoError(t, r.SetRate(50))

	require.NoError(t, r.Start())
	for range 3 {
		g.clock.Advance(20 * time.Millisecond)
		assert.Equal(t, TickSampled, r.Tick())
	}

	sum, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Samples)
	assert.Equal(t, 60*time.Millisecond, sum.Duration)
	assert.Equal(t, 3, r.Store().Len())

	for _, v := range r.Store().All() {
		assert.InDelta(t, 1.0, v, 1e-4)
	}
}

func TestTick_WaitsForInterval(t *testing.T) {
	g := newRig(Settings{Rate: 100}, sim.FixedADC(0))
	r := g.rec

	assert.Equal(t, TickIdle, r.Tick())

	require.NoError(t, r.Start())
	assert.Equal(t, TickWaiting, r.Tick())
	g.clock.Advance(9 * time.Millisecond)
	assert.Equal(t, TickWaiting, r.Tick())
	g.clock.Advance(time.Millisecond)
	assert.Equal(t, TickSampled, r.Tick())
}

func TestTick_ReanchorsToTickTime(t *testing.T) {
	g := newRig(Settings{Rate: 100}, sim.FixedADC(0))
	r := g.rec
	require.NoError(t, r.Start())

	// A late tick moves the schedule: the next sample is due 10ms after 13ms, not at 20ms.
	g.clock.Advance(13 * time.Millisecond)
	require.Equal(t, TickSampled, r.Tick())
	g.clock.Advance(7 * time.Millisecond)
	assert.Equal(t, TickWaiting, r.Tick())
	g.clock.Advance(3 * time.Millisecond)
	assert.Equal(t, TickSampled, r.Tick())
}

func TestTick_HighRateSamplesEveryTick(t *testing.T) {
	g := newRig(Settings{Rate: 5000}, sim.FixedADC(0))
	r := g.rec

	assert.Equal(t, time.Duration(0), r.Interval())
	require.NoError(t, r.Start())
	for range 4 {
		assert.Equal(t, TickSampled, r.Tick())
	}
	assert.Equal(t, 4, r.Store().Len())
}

func TestTick_AutoStopsWhenFull(t *testing.T) {
	g := newRig(Settings{Capacity: 5, Rate: 1000}, sim.FixedADC(0))
	r := g.rec
	require.NoError(t, r.Start())

	var events []TickEvent
	for range 20 {
		g.clock.Advance(time.Millisecond)
		ev := r.Tick()
		events = append(events, ev)
		assert.LessOrEqual(t, r.Store().Len(), r.Store().Cap())
		if ev == TickFull {
			break
		}
	}

	assert.Equal(t, TickFull, events[len(events)-1])
	assert.Len(t, events, 5)
	assert.False(t, r.Recording())
	assert.Equal(t, 5, r.Store().Len())
	assert.True(t, g.led.On)

	g.clock.Advance(time.Millisecond)
	assert.Equal(t, TickIdle, r.Tick())
	assert.Equal(t, 5, r.Store().Len())

	sum := r.Summary()
	assert.Equal(t, 5, sum.Samples)
	assert.Equal(t, 5*time.Millisecond, sum.Duration)
}

func TestTick_BlinksWhileRecording(t *testing.T) {
	g := newRig(Settings{Rate: 5000}, sim.FixedADC(0))
	r := g.rec
	require.NoError(t, r.Start())

	for range 50 {
		r.Tick()
	}
	assert.False(t, g.led.On, "LED is off for samples 50-99 of every hundred")

	for range 50 {
		r.Tick()
	}
	assert.True(t, g.led.On)
}

func TestClear_WhileRecording(t *testing.T) {
	g := newRig(Settings{Rate: 5000}, sim.FixedADC(0))
	r := g.rec
	require.NoError(t, r.Start())
	r.Tick()
	r.Tick()

	r.Clear()
	assert.Equal(t, 0, r.Store().Len())
	assert.True(t, r.Recording())

	r.Tick()
	assert.Equal(t, 1, r.Store().Len())
}

func TestCalibrate_FixedCode(t *testing.T) {
	const code = 124
	g := newRig(DefaultSettings(), sim.FixedADC(code))
	r := g.rec

	offset := r.Calibrate()
	assert.InDelta(t, float32(code)/1000, offset, 1e-4)
	assert.Equal(t, offset, r.Offset())
	assert.Equal(t, float32(0), r.Read())
}

func TestStatus(t *testing.T) {
	adc := &sim.SequenceADC{Codes: []uint16{1000, 3000, 2000, 1500}}
	g := newRig(Settings{Capacity: 10, Rate: 1000, Oversampling: 1}, adc)
	r := g.rec

	require.NoError(t, r.Start())
	for range 3 {
		g.clock.Advance(time.Millisecond)
		r.Tick()
	}
	_, err := r.Stop()
	require.NoError(t, err)

	st := r.Status()
	assert.False(t, st.Recording)
	assert.Equal(t, 3, st.Samples)
	assert.Equal(t, 10, st.Capacity)
	assert.Equal(t, 1000, st.Rate)
	assert.Equal(t, 12, st.MemoryBytes)
	assert.InDelta(t, 1.5, st.Voltage, 1e-4)
	require.True(t, st.HasStats)
	assert.InDelta(t, 1.0, st.Stats.Min, 1e-4)
	assert.InDelta(t, 3.0, st.Stats.Max, 1e-4)
	assert.InDelta(t, 2.0, st.Stats.Avg, 1e-4)
	assert.Equal(t, 3*time.Millisecond, st.Duration)
}

func TestReplay_EmptyStore(t *testing.T) {
	g := newRig(DefaultSettings(), sim.FixedADC(0))

	_, err := g.rec.Replay(&sim.Input{}, nil)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 0, g.dac.Writes())
}

func TestReplay_WhileRecording(t *testing.T) {
	g := newRig(Settings{Rate: 5000}, sim.FixedADC(0))
	require.NoError(t, g.rec.Start())
	g.rec.Tick()

	_, err := g.rec.Replay(nil, nil)
	assert.ErrorIs(t, err, ErrRecording)
	assert.Equal(t, 0, g.dac.Writes())
}

// record captures len(codes) samples at 50 Hz with ticks exactly on schedule.
func record(t *testing.T, codes []uint16) *rig {
	t.Helper()
	g := newRig(Settings{Rate: 50, Oversampling: 1}, &sim.SequenceADC{Codes: codes})
	require.NoError(t, g.rec.Start())
	for range codes {
		g.clock.Advance(20 * time.Millisecond)
		require.Equal(t, TickSampled, g.rec.Tick())
	}
	_, err := g.rec.Stop()
	require.NoError(t, err)
	return g
}

func TestReplay_PlaysInOrderAtRate(t *testing.T) {
	g := record(t, []uint16{0, 1650, 3300, 5000})

	var steps []ReplayStep
	report, err := g.rec.Replay(&sim.Input{}, func(s ReplayStep) { steps = append(steps, s) })
	require.NoError(t, err)

	assert.Equal(t, 4, report.Played)
	assert.False(t, report.Interrupted)
	assert.Equal(t, 80*time.Millisecond, report.Elapsed)
	assert.Equal(t, 80*time.Millisecond, report.Expected)
	assert.False(t, report.Diverged)

	require.Len(t, steps, 4)
	for i, s := range steps {
		assert.Equal(t, i, s.Index)
	}
	assert.Equal(t, []uint8{0, 127, 255, 255, 0}, g.dac.Levels(), "output is reset to zero afterwards")
	assert.InDelta(t, 3.3, steps[3].Volts, 1e-6, "values are clamped to the output range")
}

func TestReplay_Interrupted(t *testing.T) {
	g := record(t, []uint16{100, 200, 300, 400, 500})
	cancel := sim.PressAfter(2)

	report, err := g.rec.Replay(cancel, nil)
	require.NoError(t, err)

	assert.True(t, report.Interrupted)
	assert.Equal(t, 2, report.Played)
	assert.Equal(t, 1, cancel.Discarded)
	assert.Equal(t, 3, g.dac.Writes())
	assert.Equal(t, uint8(0), g.dac.Level())
}

func TestReplay_FlagsDivergence(t *testing.T) {
	g := newRig(Settings{Rate: 50, Oversampling: 1}, sim.FixedADC(1000))
	require.NoError(t, g.rec.Start())
	for range 4 {
		g.clock.Advance(20 * time.Millisecond)
		g.rec.Tick()
	}
	g.clock.Advance(time.Second) // stop arrives late
	_, err := g.rec.Stop()
	require.NoError(t, err)

	report, err := g.rec.Replay(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1080*time.Millisecond, report.Expected)
	assert.True(t, report.Diverged)
}

func TestReplay_NominalExpectedWithoutSession(t *testing.T) {
	g := newRig(Settings{Rate: 10}, sim.FixedADC(0))
	for range 5 {
		g.rec.Store().Append(1)
	}

	report, err := g.rec.Replay(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, report.Expected)
	assert.Equal(t, 500*time.Millisecond, report.Elapsed)
}

func TestErrors(t *testing.T) {
	err := &RangeError{Name: "sample rate", Value: 0, Min: 1, Max: 10000}
	assert.Equal(t, "invalid sample rate 0 (1-10000)", err.Error())
	assert.True(t, errors.Is(ErrNoData, ErrNoData))
}

func TestEnded(t *testing.T) {
	r := newRig(DefaultSettings(), sim.FixedADC(0)).rec
	assert.False(t, r.Ended())

	require.NoError(t, r.Start())
	assert.False(t, r.Ended())

	_, err := r.Stop()
	require.NoError(t, err)
	assert.True(t, r.Ended())

	require.NoError(t, r.Start())
	assert.False(t, r.Ended(), "start resets the session")
}
