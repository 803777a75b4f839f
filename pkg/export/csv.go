package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var csvHeader = []string{"index", "voltage", "elapsed_ms"}

// CSVSink writes the most recent capture to a file. Each capture replaces the
// previous file contents.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink writing to path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Write stores c. The file is replaced atomically.
func (s *CSVSink) Write(_ context.Context, c Capture) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".capture-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, smp := range c.Samples {
		record := []string{
			strconv.Itoa(smp.Index),
			strconv.FormatFloat(float64(smp.Voltage), 'f', 4, 32),
			strconv.FormatFloat(float64(smp.ElapsedMs), 'f', 1, 32),
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush csv file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close csv file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write csv file %s: %w", s.path, err)
	}
	return nil
}

// Close does nothing; files are closed after every write.
func (s *CSVSink) Close() error { return nil }
