package command

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/chewxy/math32"
	"github.com/google/shlex"

	"github.com/itohio/govrec/pkg/recorder"
)

const (
	separator      = "------------------------"
	dumpHeader     = "Sample#,Voltage(V),Time(ms)"
	continuePrompt = "--- Press any key to continue ---"
	pagePoll       = 10 * time.Millisecond
)

type entry struct {
	names []string
	run   func(args []string, src LineSource)
}

// table lists commands in match order. The first name that prefixes the
// lowercased line wins.
func (c *Console) table() []entry {
	return []entry{
		{names: []string{"start", "begin"}, run: func([]string, LineSource) { c.start() }},
		{names: []string{"stop"}, run: func([]string, LineSource) { c.stop() }},
		{names: []string{"show", "print"}, run: func(_ []string, src LineSource) { c.show(src) }},
		{names: []string{"replay", "replicate"}, run: func(_ []string, src LineSource) { c.replay(src) }},
		{names: []string{"status"}, run: func([]string, LineSource) { c.status() }},
		{names: []string{"clear"}, run: func([]string, LineSource) { c.clear() }},
		{names: []string{"rate"}, run: func(args []string, _ LineSource) { c.setRate(args) }},
		{names: []string{"samples"}, run: func(args []string, _ LineSource) { c.setOversampling(args) }},
		{names: []string{"read"}, run: func([]string, LineSource) { c.read() }},
		{names: []string{"calibrate"}, run: func([]string, LineSource) { c.calibrate() }},
		{names: []string{"help"}, run: func([]string, LineSource) { c.help() }},
	}
}

// Handle executes one command line. src is polled by long-running commands
// (replay, paged show) and may be nil.
func (c *Console) Handle(line string, src LineSource) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return
	}
	if src == nil {
		src = NewQueue(1)
	}

	fields, err := shlex.Split(line)
	if err != nil || len(fields) == 0 {
		fields = strings.Fields(line)
	}
	args := fields[1:]

	for _, e := range c.cmds {
		for _, name := range e.names {
			if strings.HasPrefix(line, name) {
				e.run(args, src)
				return
			}
		}
	}
	c.println("Unknown command. Type 'help' for available commands.")
}

func (c *Console) start() {
	if err := c.rec.Start(); err != nil {
		c.println("Already recording!")
		return
	}
	c.printf("Started recording at %d Hz...\n", c.rec.Rate())
	c.println("Type 'stop' to end recording.")
}

func (c *Console) stop() {
	sum, err := c.rec.Stop()
	if err != nil {
		c.println("Not currently recording.")
		return
	}
	c.printStopped(sum)
}

func (c *Console) printStopped(sum recorder.Summary) {
	c.printf("Recording stopped. Captured %d samples.\n", sum.Samples)
	c.printf("Actual recording duration: %.2f seconds\n", sum.Duration.Seconds())
	c.println("Type 'show' to view data or 'replay' to replicate voltages.")
}

func (c *Console) show(src LineSource) {
	st := c.rec.Store()
	n := st.Len()
	if n == 0 {
		c.println("No data recorded!")
		return
	}

	rate := float32(c.rec.Rate())
	c.printf("Printing %d recorded samples:\n", n)
	c.println(dumpHeader)
	c.println(separator)
	for i, v := range st.All() {
		c.printf("%d,%.4f,%.1f\n", i, v, float32(i)*1000/rate)
		if c.opts.PageSize > 0 && (i+1)%c.opts.PageSize == 0 && i < n-1 {
			c.println(continuePrompt)
			c.waitForKey(src)
		}
	}
	c.println(separator)
	c.printf("Total: %d samples\n", n)
}

func (c *Console) waitForKey(src LineSource) {
	clock := c.rec.Clock()
	for !src.Pending() {
		clock.Sleep(pagePoll)
	}
	src.Discard()
}

func (c *Console) replay(src LineSource) {
	n := c.rec.Store().Len()
	if n > 0 && !c.rec.Recording() {
		c.printf("Replaying %d voltage samples...\n", n)
		c.printf("Note: output has limited precision (8-bit, 0-%.1fV range)\n", c.rec.OutputFullScale())
		c.println("Type any key to stop replay.")
		c.println("")
	}

	last := float32(-1)
	report, err := c.rec.Replay(src, func(s recorder.ReplayStep) {
		if s.Index%replayLogEvery == 0 || math32.Abs(s.Volts-last) > replayLogDelta {
			c.printf("Sample %d: %.4fV -> DAC %d\n", s.Index, s.Volts, s.Level)
			last = s.Volts
		}
	})
	switch {
	case errors.Is(err, recorder.ErrNoData):
		c.println("No data to replay!")
		return
	case errors.Is(err, recorder.ErrRecording):
		c.println("Recording in progress. Type 'stop' before replay.")
		return
	}

	if report.Interrupted {
		c.printf("Replay interrupted after %d samples.\n", report.Played)
	} else {
		c.println("Replay completed.")
	}
	c.printf("Expected duration: %.3f s, Replay duration: %.3f s\n", report.Expected.Seconds(), report.Elapsed.Seconds())
	if c.rec.AboveSafeRate() {
		c.printf("WARNING: Replay rate is above safe value (%d Hz). Timing may be inaccurate!\n", c.rec.SafeRate())
	}
	if report.Diverged && !report.Interrupted {
		c.println("ERROR: Exceeded stable sample rate! Replay duration does not match expected duration. Lower your sample rate for reliable timing.")
	}
}

func (c *Console) status() {
	st := c.rec.Status()

	recording := "NO"
	if st.Recording {
		recording = "YES"
	}
	c.println("=== System Status ===")
	c.printf("Recording: %s\n", recording)
	c.printf("Samples in buffer: %d/%d\n", st.Samples, st.Capacity)
	c.printf("Sample rate: %d Hz\n", st.Rate)
	c.rateWarning()
	c.printf("ADC samples per reading: %d\n", st.Oversampling)
	c.printf("ADC offset: %.4f V\n", st.Offset)
	c.printf("Memory usage: %.1f KB\n", float32(st.MemoryBytes)/1024)
	c.printf("Current voltage: %.4f V\n", st.Voltage)
	if st.HasStats {
		c.printf("Recorded range: %.4f - %.4f V (avg: %.4f V)\n", st.Stats.Min, st.Stats.Max, st.Stats.Avg)
		c.printf("Actual recording duration: %.2f seconds\n", st.Duration.Seconds())
	}
}

func (c *Console) clear() {
	c.rec.Clear()
	c.println("Buffer cleared.")
}

func (c *Console) setRate(args []string) {
	if err := c.rec.SetRate(intArg(args)); err != nil {
		c.printf("Invalid sample rate (%d-%d Hz)\n", recorder.MinRate, recorder.MaxRate)
		return
	}
	c.printf("Sample rate set to %d Hz\n", c.rec.Rate())
	c.rateWarning()
}

func (c *Console) rateWarning() {
	if c.rec.AboveSafeRate() {
		c.printf("WARNING: Sample rate is above safe value (%d Hz). Recording and replay timing may be inaccurate!\n", c.rec.SafeRate())
	}
}

func (c *Console) setOversampling(args []string) {
	if err := c.rec.SetOversampling(intArg(args)); err != nil {
		c.printf("Invalid ADC samples (%d-%d)\n", recorder.MinOversampling, recorder.MaxOversampling)
		return
	}
	c.printf("ADC samples per reading set to %d\n", c.rec.Oversampling())
}

func (c *Console) read() {
	c.printf("Current voltage: %.4f V\n", c.rec.Read())
}

func (c *Console) calibrate() {
	c.println("Make sure the ADC pin is connected to GND during calibration.")
	c.printf("ADC offset calibrated: %.4f V\n", c.rec.Calibrate())
}

func (c *Console) help() {
	c.println("")
	c.println("=== Available Commands ===")
	c.println("start/begin   - Start voltage recording")
	c.println("stop          - Stop recording")
	c.println("show/print    - Display recorded data")
	c.println("replay        - Replicate recorded voltages on DAC pin")
	c.println("status        - Show system status")
	c.println("read          - Read current voltage")
	c.println("clear         - Clear sample buffer")
	c.println("calibrate     - Calibrate ADC offset (run with pin grounded)")
	c.printf("rate <Hz>     - Set sample rate (%d-%d Hz)\n", recorder.MinRate, recorder.MaxRate)
	c.printf("samples <N>   - Set ADC samples per reading (%d-%d)\n", recorder.MinOversampling, recorder.MaxOversampling)
	c.println("help          - Show this help")
	if c.opts.InputLabel != "" || c.opts.OutputLabel != "" {
		c.println("")
		c.println("Connections:")
		c.printf("Voltage input: %s (0-3.3V max!)\n", c.opts.InputLabel)
		c.printf("Voltage output: %s\n", c.opts.OutputLabel)
	}
	capacity := c.rec.Store().Cap()
	c.printf("\nMax samples: %d (%.1f KB memory)\n", capacity, float32(capacity*4)/1024)
}

// intArg parses the first argument. Missing or malformed input yields 0,
// which every range check rejects.
func intArg(args []string) int {
	if len(args) == 0 {
		return 0
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0
	}
	return n
}
