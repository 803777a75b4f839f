package link

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/itohio/govrec/pkg/analog"
	"github.com/itohio/govrec/pkg/command"
	"github.com/itohio/govrec/pkg/config"
	"github.com/itohio/govrec/pkg/hal"
	"github.com/itohio/govrec/pkg/recorder"
	"github.com/itohio/govrec/pkg/sim"
)

// Loopback runs the recorder firmware logic in-process against a simulated
// input signal, for development without a board.
type Loopback struct {
	cfg *config.Config
	log *zap.Logger

	lines     chan string
	queue     *command.Queue
	dac       *probeDAC
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// NewLoopback creates a loopback device. A nil cfg uses config.Default().
func NewLoopback(cfg *config.Config, log *zap.Logger) *Loopback {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("port", "loopback"))

	ctx, cancel := context.WithCancel(context.Background())

	return &Loopback{
		cfg:    cfg,
		log:    log,
		lines:  make(chan string, DefaultBufferSize),
		queue:  command.NewQueue(16),
		dac:    &probeDAC{log: log},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect builds the simulated board and starts its control loop.
func (l *Loopback) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connected {
		return ErrAlreadyConnected
	}

	console, adc, err := l.build()
	if err != nil {
		return err
	}

	l.connected = true
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		src := &cancelSource{LineSource: l.queue, ctx: l.ctx}
		// The simulated pin is grounded for the boot calibration.
		adc.grounded = true
		console.Boot()
		adc.grounded = false
		if err := console.Run(l.ctx, src); err != nil {
			l.log.Debug("control loop stopped", zap.Error(err))
		}
	}()

	l.log.Info("connected", zap.Int("sampleRate", l.cfg.Recorder.SampleRate))
	return nil
}

func (l *Loopback) build() (*command.Console, *probeADC, error) {
	table, err := l.table()
	if err != nil {
		return nil, nil, err
	}

	clock := hal.NewSystemClock()
	adc := &probeADC{ADC: sim.NewADC(clock, sim.Signal{
		Bias:       l.cfg.Mock.Bias,
		Amplitude:  l.cfg.Mock.Amplitude,
		Frequency:  l.cfg.Mock.Frequency,
		NoiseLevel: l.cfg.Mock.NoiseLevel,
	}, l.cfg.ADC.Resolution, l.cfg.ADC.VRefMV/1000)}

	rec := recorder.New(recorder.Settings{
		Capacity:     l.cfg.Recorder.Capacity,
		Rate:         l.cfg.Recorder.SampleRate,
		Oversampling: l.cfg.Recorder.Oversampling,
		SafeRate:     l.cfg.Recorder.SafeRate,
	}, recorder.Hardware{
		Input:  analog.NewInput(adc, table, clock, l.cfg.ADC.Settle),
		Output: analog.NewOutput(l.dac, float32(l.cfg.DAC.FullScale)),
		Clock:  clock,
	})

	w := &lineWriter{ctx: l.ctx, out: l.lines}
	console := command.New(rec, w, command.Options{
		PageSize:    l.cfg.Recorder.PageSize,
		Idle:        l.cfg.Recorder.Idle,
		BootSettle:  l.cfg.Recorder.BootSettle,
		InputLabel:  "simulated signal",
		OutputLabel: "simulated DAC",
	})
	return console, adc, nil
}

func (l *Loopback) table() (analog.Table, error) {
	if len(l.cfg.ADC.Points) == 0 {
		return analog.LinearTable(l.cfg.ADC.Resolution, float32(l.cfg.ADC.VRefMV)), nil
	}
	points := make([]analog.Point, 0, len(l.cfg.ADC.Points))
	for _, p := range l.cfg.ADC.Points {
		points = append(points, analog.Point{Raw: p.Raw, MilliVolts: float32(p.MilliVolts)})
	}
	table, err := analog.NewTable(points)
	if err != nil {
		return analog.Table{}, fmt.Errorf("invalid ADC calibration points: %w", err)
	}
	return table, nil
}

// Close stops the control loop and closes Lines. A running replay or paged
// dump is interrupted.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil
	}

	l.cancel()
	<-l.done
	l.connected = false
	close(l.lines)

	l.log.Info("disconnected")
	return nil
}

// Lines returns the channel of lines printed by the simulated board.
func (l *Loopback) Lines() <-chan string {
	return l.lines
}

// Send queues one command line.
func (l *Loopback) Send(cmd string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.connected {
		return ErrNotConnected
	}
	if err := l.queue.Push(l.ctx, cmd); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	l.log.Debug("sent", zap.String("cmd", cmd))
	return nil
}

// IsConnected returns whether the control loop is running.
func (l *Loopback) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// OutputLevel returns the last level written to the simulated DAC.
func (l *Loopback) OutputLevel() uint8 {
	return l.dac.Level()
}

// cancelSource reports pending input once ctx is done so that blocking
// commands return promptly on shutdown.
type cancelSource struct {
	command.LineSource
	ctx context.Context
}

func (s *cancelSource) Pending() bool {
	return s.ctx.Err() != nil || s.LineSource.Pending()
}

// lineWriter splits console output into lines.
type lineWriter struct {
	ctx context.Context
	out chan<- string
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := strings.TrimRight(string(w.buf.Next(i+1)), "\r\n")
		select {
		case w.out <- line:
		case <-w.ctx.Done():
			w.buf.Reset()
			return len(p), nil
		}
	}
}

// probeADC reads zero while grounded. It is only touched by the control loop.
type probeADC struct {
	hal.ADC
	grounded bool
}

func (a *probeADC) ReadRaw() uint16 {
	if a.grounded {
		return 0
	}
	return a.ADC.ReadRaw()
}

// probeDAC keeps the last output level and logs changes.
type probeDAC struct {
	log   *zap.Logger
	mu    sync.Mutex
	level uint8
}

func (d *probeDAC) SetLevel(level uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if level != d.level {
		d.log.Debug("dac level", zap.Uint8("level", level))
	}
	d.level = level
}

func (d *probeDAC) Level() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}
