package export

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sink stores or forwards captures.
type Sink interface {
	Write(ctx context.Context, c Capture) error
	Close() error
}

// Exporter fans captures out to every configured sink.
type Exporter struct {
	sinks []Sink
	log   *zap.Logger
}

// NewExporter creates an exporter. It may have no sinks.
func NewExporter(log *zap.Logger, sinks ...Sink) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{sinks: sinks, log: log}
}

// Len returns the number of sinks.
func (e *Exporter) Len() int { return len(e.sinks) }

// Export writes c to all sinks. A failing sink does not stop the others.
func (e *Exporter) Export(ctx context.Context, c Capture) error {
	var err error
	for _, s := range e.sinks {
		if werr := s.Write(ctx, c); werr != nil {
			e.log.Warn("export failed", zap.Stringer("id", c.ID), zap.Error(werr))
			err = multierr.Append(err, werr)
		}
	}
	return err
}

// Close closes all sinks.
func (e *Exporter) Close() error {
	var err error
	for _, s := range e.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
