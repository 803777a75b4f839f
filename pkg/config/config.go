package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the host application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Recorder RecorderConfig `yaml:"recorder"`
	ADC      ADCConfig      `yaml:"adc"`
	DAC      DACConfig      `yaml:"dac"`
	Mock     MockConfig     `yaml:"mock"`
	Export   ExportConfig   `yaml:"export"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// RecorderConfig contains the initial recorder settings of the loopback device.
type RecorderConfig struct {
	Capacity     int           `yaml:"capacity"`     // Maximum stored samples
	SampleRate   int           `yaml:"sample_rate"`  // Hz, 1-10000
	Oversampling int           `yaml:"oversampling"` // ADC conversions per reading, 1-1024
	SafeRate     int           `yaml:"safe_rate"`    // Hz above which timing warnings are printed
	PageSize     int           `yaml:"page_size"`    // Lines between "show" pauses (0 = no paging)
	Idle         time.Duration `yaml:"idle"`         // Control loop pause
	BootSettle   time.Duration `yaml:"boot_settle"`  // Wait before boot calibration
}

// ADCConfig contains the analog input characteristic.
type ADCConfig struct {
	Resolution int                `yaml:"resolution"` // Bits
	VRefMV     float64            `yaml:"vref_mv"`    // Full-scale input in millivolts
	Settle     time.Duration      `yaml:"settle"`     // Pause between oversampled conversions
	Points     []CalibrationPoint `yaml:"points"`     // Optional measured characteristic
}

// CalibrationPoint maps a raw ADC code to millivolts.
type CalibrationPoint struct {
	Raw        uint16  `yaml:"raw"`
	MilliVolts float64 `yaml:"millivolts"`
}

// DACConfig contains analog output configuration.
type DACConfig struct {
	FullScale float64 `yaml:"full_scale"` // Output voltage at the highest level (V)
}

// MockConfig contains the simulated input signal of the loopback device.
type MockConfig struct {
	Bias       float64 `yaml:"bias"`        // DC level (V)
	Amplitude  float64 `yaml:"amplitude"`   // Sine amplitude (V)
	Frequency  float64 `yaml:"frequency"`   // Sine frequency (Hz)
	NoiseLevel float64 `yaml:"noise_level"` // Peak noise (V)
}

// ExportConfig contains capture export destinations. Empty values disable a sink.
type ExportConfig struct {
	CSVPath string     `yaml:"csv_path"`
	MQTT    MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig contains MQTT publishing configuration.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"` // e.g. tcp://localhost:1883
	Topic     string        `yaml:"topic"`
	ClientID  string        `yaml:"client_id"`
	QoS       byte          `yaml:"qos"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxPoints int           `yaml:"max_points"` // Decimate payloads to this many samples (0 = all)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0", // "COM3" on Windows
			BaudRate: 115200,
		},
		Recorder: RecorderConfig{
			Capacity:     5000,
			SampleRate:   100,
			Oversampling: 64,
			SafeRate:     200,
			PageSize:     0,
			Idle:         time.Millisecond,
			BootSettle:   0,
		},
		ADC: ADCConfig{
			Resolution: 12,
			VRefMV:     3300,
			Settle:     10 * time.Microsecond,
		},
		DAC: DACConfig{
			FullScale: 3.3,
		},
		Mock: MockConfig{
			Bias:       1.2,
			Amplitude:  1.0,
			Frequency:  0.5,
			NoiseLevel: 0.005,
		},
		Export: ExportConfig{
			MQTT: MQTTConfig{
				Topic:    "govrec/captures",
				ClientID: "govrec",
				QoS:      1,
				Timeout:  5 * time.Second,
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults replaces missing or out-of-range values with defaults.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate <= 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Recorder.Capacity <= 0 {
		c.Recorder.Capacity = def.Recorder.Capacity
	}
	if c.Recorder.SampleRate < 1 || c.Recorder.SampleRate > 10000 {
		c.Recorder.SampleRate = def.Recorder.SampleRate
	}
	if c.Recorder.Oversampling < 1 || c.Recorder.Oversampling > 1024 {
		c.Recorder.Oversampling = def.Recorder.Oversampling
	}
	if c.Recorder.SafeRate <= 0 {
		c.Recorder.SafeRate = def.Recorder.SafeRate
	}
	if c.Recorder.PageSize < 0 {
		c.Recorder.PageSize = 0
	}
	if c.Recorder.Idle <= 0 {
		c.Recorder.Idle = def.Recorder.Idle
	}

	if c.ADC.Resolution <= 0 || c.ADC.Resolution > 16 {
		c.ADC.Resolution = def.ADC.Resolution
	}
	if c.ADC.VRefMV <= 0 {
		c.ADC.VRefMV = def.ADC.VRefMV
	}

	if c.DAC.FullScale <= 0 {
		c.DAC.FullScale = def.DAC.FullScale
	}

	if c.Export.MQTT.Topic == "" {
		c.Export.MQTT.Topic = def.Export.MQTT.Topic
	}
	if c.Export.MQTT.ClientID == "" {
		c.Export.MQTT.ClientID = def.Export.MQTT.ClientID
	}
	if c.Export.MQTT.QoS > 2 {
		c.Export.MQTT.QoS = def.Export.MQTT.QoS
	}
	if c.Export.MQTT.Timeout <= 0 {
		c.Export.MQTT.Timeout = def.Export.MQTT.Timeout
	}
	if c.Export.MQTT.MaxPoints < 0 {
		c.Export.MQTT.MaxPoints = 0
	}
}
