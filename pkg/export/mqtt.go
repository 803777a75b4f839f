package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itohio/govrec/pkg/config"
	"github.com/itohio/govrec/pkg/link"
)

// disconnectQuiesce is the time in ms given to in-flight messages on Close.
const disconnectQuiesce = 250

// MQTTClient is the part of mqtt.Client the sink uses.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// CapturePayload is the JSON message published for a capture.
type CapturePayload struct {
	ID      string          `json:"id"`
	Taken   time.Time       `json:"taken"`
	Count   int             `json:"count"`
	Samples []SamplePayload `json:"samples"`
}

// SamplePayload is one sample in a CapturePayload.
type SamplePayload struct {
	Index     int     `json:"index"`
	Voltage   float32 `json:"voltage"`
	ElapsedMs float32 `json:"elapsed_ms"`
}

// MQTTSink publishes captures as JSON.
type MQTTSink struct {
	client    MQTTClient
	topic     string
	qos       byte
	timeout   time.Duration
	maxPoints int
	scratch   []link.Sample
	log       *zap.Logger
}

// DialMQTT connects to cfg.Broker and returns a sink publishing to cfg.Topic.
func DialMQTT(cfg config.MQTTConfig, log *zap.Logger) (*MQTTSink, error) {
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	return NewMQTTSink(client, cfg, log), nil
}

// NewMQTTSink creates a sink on an already connected client.
func NewMQTTSink(client MQTTClient, cfg config.MQTTConfig, log *zap.Logger) *MQTTSink {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTSink{
		client:    client,
		topic:     cfg.Topic,
		qos:       cfg.QoS,
		timeout:   timeout,
		maxPoints: cfg.MaxPoints,
		log:       log.With(zap.String("topic", cfg.Topic)),
	}
}

// NewPayload converts a capture to its wire form. Count is the size of the
// capture; samples may be a decimated subset of it.
func NewPayload(c Capture, samples []link.Sample) CapturePayload {
	p := CapturePayload{
		ID:      c.ID.String(),
		Taken:   c.Taken,
		Count:   len(c.Samples),
		Samples: make([]SamplePayload, 0, len(samples)),
	}
	for _, s := range samples {
		p.Samples = append(p.Samples, SamplePayload{Index: s.Index, Voltage: s.Voltage, ElapsedMs: s.ElapsedMs})
	}
	return p
}

// Write publishes c and waits for the broker to acknowledge it.
func (s *MQTTSink) Write(ctx context.Context, c Capture) error {
	s.scratch = Decimate(s.scratch, c.Samples, s.maxPoints)
	payload, err := json.Marshal(NewPayload(c, s.scratch))
	if err != nil {
		return fmt.Errorf("failed to marshal capture: %w", err)
	}

	token := s.client.Publish(s.topic, s.qos, false, payload)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("failed to publish capture %s: timeout", c.ID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish capture %s: %w", c.ID, err)
	}

	s.log.Debug("capture published", zap.Stringer("id", c.ID), zap.Int("bytes", len(payload)))
	return nil
}

// Close disconnects the client.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(disconnectQuiesce)
	return nil
}

var (
	_ Sink       = (*MQTTSink)(nil)
	_ Sink       = (*CSVSink)(nil)
	_ MQTTClient = (mqtt.Client)(nil)
)
