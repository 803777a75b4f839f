// Package export turns "show" dumps seen on the device link into captures and
// hands them to sinks.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itohio/govrec/pkg/link"
)

const (
	dumpHeader   = "Sample#,Voltage(V),Time(ms)"
	dumpRule     = "------------------------"
	dumpPrompt   = "--- Press any key to continue ---"
	footerPrefix = "Total:"
)

// Capture is one complete dump of the recorder buffer.
type Capture struct {
	ID      uuid.UUID
	Taken   time.Time
	Samples []link.Sample
}

type collectState int

const (
	stateIdle collectState = iota
	stateHeader
	stateRows
	stateFooter
)

// Collector assembles captures from device lines. It is not safe for
// concurrent use.
type Collector struct {
	log   *zap.Logger
	now   func() time.Time
	state collectState
	rows  []link.Sample
}

// NewCollector creates an idle collector.
func NewCollector(log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{log: log, now: time.Now}
}

// Feed consumes one line and returns a capture when the line completes a dump.
func (c *Collector) Feed(line string) (Capture, bool) {
	line = strings.TrimSpace(line)
	if line == dumpHeader {
		c.state = stateHeader
		c.rows = nil
		return Capture{}, false
	}

	switch c.state {
	case stateHeader:
		if line == dumpRule {
			c.state = stateRows
		} else {
			c.reset("missing rule after header", line)
		}
	case stateRows:
		switch {
		case line == dumpRule:
			c.state = stateFooter
		case line == dumpPrompt || line == "":
		default:
			s, err := link.ParseSampleLine(line)
			if err != nil {
				c.reset(err.Error(), line)
				break
			}
			c.rows = append(c.rows, s)
		}
	case stateFooter:
		if !strings.HasPrefix(line, footerPrefix) {
			c.reset("missing footer", line)
			break
		}
		return c.finish(line)
	}
	return Capture{}, false
}

// Active reports whether a dump is being collected.
func (c *Collector) Active() bool {
	return c.state != stateIdle
}

func (c *Collector) finish(footer string) (Capture, bool) {
	var total int
	if _, err := fmt.Sscanf(footer, "Total: %d samples", &total); err == nil && total != len(c.rows) {
		c.log.Warn("dump length mismatch", zap.Int("footer", total), zap.Int("rows", len(c.rows)))
	}

	capture := Capture{
		ID:      uuid.New(),
		Taken:   c.now(),
		Samples: c.rows,
	}
	c.state = stateIdle
	c.rows = nil

	c.log.Info("capture collected", zap.Stringer("id", capture.ID), zap.Int("samples", len(capture.Samples)))
	return capture, true
}

func (c *Collector) reset(reason, line string) {
	c.log.Warn("dump aborted", zap.String("reason", reason), zap.String("line", line))
	c.state = stateIdle
	c.rows = nil
}
