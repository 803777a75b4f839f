package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/itohio/govrec/pkg/config"
	"github.com/itohio/govrec/pkg/export"
	"github.com/itohio/govrec/pkg/link"
)

func main() {
	var (
		portFlag    = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag    = flag.Bool("mock", false, "Use the simulated loopback device instead of a serial port")
		baudFlag    = flag.Int("baud", 0, "Baud rate override")
		csvFlag     = flag.String("csv", "", "Write every captured dump to this CSV file")
		mqttFlag    = flag.String("mqtt", "", "Publish captured dumps to this MQTT broker (e.g., tcp://localhost:1883)")
		listFlag    = flag.Bool("list", false, "List serial ports and exit")
		verboseFlag = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	log, err := newLogger(*verboseFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *listFlag {
		if err := listPorts(os.Stdout); err != nil {
			log.Fatal("Failed to list ports", zap.Error(err))
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err), zap.String("path", *configFlag))
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *baudFlag > 0 {
		cfg.Serial.BaudRate = *baudFlag
	}
	if *csvFlag != "" {
		cfg.Export.CSVPath = *csvFlag
	}
	if *mqttFlag != "" {
		cfg.Export.MQTT.Broker = *mqttFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mockFlag, os.Stdin, os.Stdout, log); err != nil {
		log.Error("Terminated", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func listPorts(w io.Writer) error {
	ports, err := link.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found")
	}
	for _, p := range ports {
		fmt.Fprintln(w, p.Description)
	}
	return nil
}

func openDevice(cfg *config.Config, mock bool, log *zap.Logger) link.Device {
	if mock {
		return link.NewLoopback(cfg, log)
	}
	return link.New(cfg.Serial.Port, cfg.Serial.BaudRate, link.DefaultBufferSize, log)
}

func openExporter(cfg config.ExportConfig, log *zap.Logger) (*export.Exporter, error) {
	var sinks []export.Sink
	if cfg.CSVPath != "" {
		sinks = append(sinks, export.NewCSVSink(cfg.CSVPath))
		log.Info("Exporting captures to CSV", zap.String("path", cfg.CSVPath))
	}
	if cfg.MQTT.Broker != "" {
		sink, err := export.DialMQTT(cfg.MQTT, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
		log.Info("Exporting captures to MQTT", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", cfg.MQTT.Topic))
	}
	return export.NewExporter(log, sinks...), nil
}

// run connects to the device, forwards commands read from in and prints every
// device line to out until ctx is cancelled or the device goes away.
func run(ctx context.Context, cfg *config.Config, mock bool, in io.Reader, out io.Writer, log *zap.Logger) (err error) {
	exporter, err := openExporter(cfg.Export, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, exporter.Close())
	}()

	dev := openDevice(cfg, mock, log)
	if err := dev.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dev.Close())
	}()

	go forwardCommands(ctx, in, dev, log)

	collector := export.NewCollector(log)
	lines := dev.Lines()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errors.New("device closed")
			}
			fmt.Fprintln(out, line)
			if capture, ok := collector.Feed(line); ok && exporter.Len() > 0 {
				if err := exporter.Export(ctx, capture); err != nil {
					log.Warn("Capture not fully exported", zap.Error(err))
				}
			}
		}
	}
}

// forwardCommands sends every line of in to the device.
func forwardCommands(ctx context.Context, in io.Reader, dev link.Device, log *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := dev.Send(scanner.Text()); err != nil {
			log.Warn("Failed to send command", zap.Error(err))
			if errors.Is(err, link.ErrNotConnected) {
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("Error reading commands", zap.Error(err))
	}
}
