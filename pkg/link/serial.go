package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the console baud rate of the recorder firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size of the lines channel buffer.
	DefaultBufferSize = 256
)

var (
	// ErrNotConnected is returned by Send before Connect or after Close.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("already connected")
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to the recorder board.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	log      *zap.Logger

	conn      serial.Port
	lines     chan string
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a serial device with the specified port, baud rate and buffer size.
func New(port string, baudRate int, bufSize int, log *zap.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		log:      log.With(zap.String("port", port)),
		lines:    make(chan string, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports. USB ports are described by
// their VID:PID and product name.
func Ports() ([]Port, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, p := range ports {
		desc := p.Name
		if p.IsUSB {
			desc = fmt.Sprintf("%s (USB %s:%s %s)", p.Name, p.VID, p.PID, p.Product)
		}
		result = append(result, Port{
			Name:        p.Name,
			Description: strings.TrimSpace(desc),
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true
	d.done = make(chan struct{})

	go d.readLines(port)

	d.log.Info("connected", zap.Int("baudRate", d.baudRate))
	return nil
}

// Close closes the port and waits for the reader to exit.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port %s: %w", d.port, err)
		}
		d.conn = nil
	}

	<-d.done
	d.connected = false

	d.log.Info("disconnected")
	return err
}

// Lines returns the channel of lines printed by the board.
func (d *Serial) Lines() <-chan string {
	return d.lines
}

// Send writes cmd followed by a newline.
func (d *Serial) Send(cmd string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := d.conn.Write([]byte(strings.TrimSpace(cmd) + "\n")); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	d.log.Debug("sent", zap.String("cmd", cmd))
	return nil
}

// IsConnected returns whether the port is open and still readable.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.connected {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// readLines forwards board output until the port is closed or fails, then
// closes Lines.
func (d *Serial) readLines(port io.Reader) {
	defer close(d.done)
	defer close(d.lines)

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		select {
		case d.lines <- line:
		case <-d.ctx.Done():
			return
		}
	}

	if d.ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		d.log.Warn("error reading from serial port", zap.Error(err))
	} else {
		d.log.Warn("serial port closed by device")
	}
}
