package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Tuning  TuningConfig  `yaml:"tuning"`
	Capture CaptureConfig `yaml:"capture"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// DeviceConfig identifies the receiver and its two channels
type DeviceConfig struct {
	Host           string `yaml:"host"`
	ControlPort    int    `yaml:"control_port"`
	DataPort       int    `yaml:"data_port"`
	RequestTimeout int    `yaml:"request_timeout"` // seconds
	BufferSize     int    `yaml:"buffer_size"`     // UDP read buffer
}

// TuningConfig carries the device parameters sent during connect.
// The exact payload bytes are receiver configuration, not client
// logic; this is the collaborator that supplies them.
type TuningConfig struct {
	SampleRate uint32 `yaml:"sample_rate"` // IQ output rate in Hz
	RFFilter   uint8  `yaml:"rf_filter"`   // 0 = automatic selection
	ADDither   bool   `yaml:"ad_dither"`
	ADGain     bool   `yaml:"ad_gain"` // 1.5x A/D input gain
	SampleBits int    `yaml:"sample_bits"`
	Channel    uint8  `yaml:"channel"`
}

// CaptureConfig controls sample persistence
type CaptureConfig struct {
	OutputFile string `yaml:"output_file"`
	Format     string `yaml:"format"` // "raw" or "wav"
}

// HTTPConfig contains the monitoring server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with working values for a receiver
// on its factory ports.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:           "192.168.1.100",
			ControlPort:    50000,
			DataPort:       60000,
			RequestTimeout: 5,
			BufferSize:     65536,
		},
		Tuning: TuningConfig{
			SampleRate: 200000,
			RFFilter:   0,
			ADDither:   true,
			ADGain:     true,
			SampleBits: 16,
			Channel:    0,
		},
		Capture: CaptureConfig{
			OutputFile: "capture.raw",
			Format:     "raw",
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level: "",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device config: %w", err)
	}

	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	return nil
}

// Validate validates device configuration
func (d *DeviceConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if d.ControlPort < 1 || d.ControlPort > 65535 {
		return fmt.Errorf("control_port must be between 1 and 65535, got %d", d.ControlPort)
	}

	if d.DataPort < 1 || d.DataPort > 65535 {
		return fmt.Errorf("data_port must be between 1 and 65535, got %d", d.DataPort)
	}

	if d.RequestTimeout < 1 {
		return fmt.Errorf("request_timeout must be at least 1 second, got %d", d.RequestTimeout)
	}

	if d.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", d.BufferSize)
	}

	return nil
}

// Validate validates tuning configuration
func (t *TuningConfig) Validate() error {
	if t.SampleRate == 0 {
		return fmt.Errorf("sample_rate cannot be zero")
	}

	switch t.SampleBits {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("sample_bits must be 8, 16, 24 or 32, got %d", t.SampleBits)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.OutputFile == "" {
		return fmt.Errorf("output_file cannot be empty")
	}

	if c.Format != "raw" && c.Format != "wav" {
		return fmt.Errorf("format must be 'raw' or 'wav', got '%s'", c.Format)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when enabled")
		}
	}

	return nil
}

// RequestTimeoutDuration returns the control request timeout as a
// time.Duration
func (d *DeviceConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(d.RequestTimeout) * time.Second
}

// SampleRateBody builds the IQOutputDataSampleRate command body:
// channel byte followed by the rate as a 4-byte little-endian value.
func (t *TuningConfig) SampleRateBody() []byte {
	body := make([]byte, 5)
	body[0] = t.Channel
	binary.LittleEndian.PutUint32(body[1:5], t.SampleRate)
	return body
}

// RFFilterBody builds the RFFilter command body: channel byte followed
// by the filter selection (0 selects automatically).
func (t *TuningConfig) RFFilterBody() []byte {
	return []byte{t.Channel, t.RFFilter}
}

// ADModesBody builds the ADModes command body: channel byte followed by
// the dither and gain flag bits.
func (t *TuningConfig) ADModesBody() []byte {
	var flags uint8
	if t.ADDither {
		flags |= 0x01
	}
	if t.ADGain {
		flags |= 0x02
	}
	return []byte{t.Channel, flags}
}
