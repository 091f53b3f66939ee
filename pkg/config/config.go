// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the emulator configuration from YAML, a .env file and
// OCULAR_* environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/ocular/pkg/controller"
)

// DefaultPath is where Save writes when the config was not loaded from a file
const DefaultPath = "/etc/ocular/emulator.yaml"

// Config holds all emulator configuration
type Config struct {
	mu sync.RWMutex

	Device       DeviceConfig       `yaml:"device"`
	Serial       SerialConfig       `yaml:"serial"`
	PTY          PTYConfig          `yaml:"pty"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	Engine       EngineConfig       `yaml:"engine"`
	Illumination IlluminationConfig `yaml:"illumination"`
	Motion       MotionConfig       `yaml:"motion"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Capture      CaptureConfig      `yaml:"capture"`

	path string
}

type DeviceConfig struct {
	Variant       string `yaml:"variant"`  // "full" or "reduced"
	Protocol      string `yaml:"protocol"` // "v2" or "legacy"
	FirmwareMajor uint8  `yaml:"firmware_major"`
	FirmwareMinor uint8  `yaml:"firmware_minor"`
}

type SerialConfig struct {
	Port     string `yaml:"port"` // empty disables the serial endpoint
	BaudRate int    `yaml:"baud_rate"`
}

type PTYConfig struct {
	Enabled bool   `yaml:"enabled"`
	Link    string `yaml:"link"` // symlink to the slave side, e.g. /tmp/ocular0
}

type WebSocketConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables the WebSocket endpoint
	Path       string `yaml:"path"`
}

type EngineConfig struct {
	ResponseIntervalMs int `yaml:"response_interval_ms"` // legacy periodic status
	PollIntervalUs     int `yaml:"poll_interval_us"`
	StrobeResolutionUs int `yaml:"strobe_resolution_us"`
	TriggerPulseUs     int `yaml:"trigger_pulse_us"`
}

type IlluminationConfig struct {
	// IntensityFactor of 0 selects the variant default
	IntensityFactor float64 `yaml:"intensity_factor"`
	Interlock       bool    `yaml:"interlock"`
}

type MotionConfig struct {
	Speed int32 `yaml:"speed"` // simulated µsteps per poll
}

type TelemetryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Broker     string `yaml:"broker"`
	Topic      string `yaml:"topic"`
	IntervalMs int    `yaml:"interval_ms"`
}

type CaptureConfig struct {
	Path string `yaml:"path"` // empty disables capture
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Variant:       controller.VariantFull.String(),
			Protocol:      controller.ProtocolV2,
			FirmwareMajor: controller.DefaultFirmwareMajor,
			FirmwareMinor: controller.DefaultFirmwareMinor,
		},
		Serial: SerialConfig{
			BaudRate: 2000000,
		},
		PTY: PTYConfig{
			Enabled: true,
			Link:    "/tmp/ocular0",
		},
		WebSocket: WebSocketConfig{
			Path: "/ws",
		},
		Engine: EngineConfig{
			ResponseIntervalMs: int(controller.DefaultLegacyInterval / time.Millisecond),
			PollIntervalUs:     int(controller.DefaultPollInterval / time.Microsecond),
			StrobeResolutionUs: int(controller.DefaultStrobeResolution / time.Microsecond),
			TriggerPulseUs:     int(controller.DefaultTriggerPulseWidth / time.Microsecond),
		},
		Motion: MotionConfig{
			Speed: controller.DefaultSimulatorSpeed,
		},
		Telemetry: TelemetryConfig{
			Broker:     "tcp://localhost:1883",
			Topic:      "ocular",
			IntervalMs: 1000,
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file leaves the defaults in place; a file
// that does not parse is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		glog.Infof("[config] no config at %s, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		glog.Infof("[config] loaded from %s", path)
	}

	for _, ep := range []string{filepath.Join(filepath.Dir(path), ".env"), ".env"} {
		loadEnvFile(ep)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile reads a KEY=VALUE .env file into the environment. Variables
// already set in the real environment win.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	glog.Infof("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

func envBool(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}

// applyEnvOverrides reads OCULAR_* variables
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OCULAR_VARIANT"); v != "" {
		c.Device.Variant = v
	}
	if v := os.Getenv("OCULAR_PROTOCOL"); v != "" {
		c.Device.Protocol = v
	}
	if v := os.Getenv("OCULAR_SERIAL_PORT"); v != "" {
		c.Serial.Port = v
	}
	if v := os.Getenv("OCULAR_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Serial.BaudRate = n
		}
	}
	if v := os.Getenv("OCULAR_PTY"); v != "" {
		c.PTY.Enabled = envBool(v)
	}
	if v := os.Getenv("OCULAR_PTY_LINK"); v != "" {
		c.PTY.Link = v
	}
	if v := os.Getenv("OCULAR_WS_LISTEN"); v != "" {
		c.WebSocket.ListenAddr = v
	}
	if v := os.Getenv("OCULAR_RESPONSE_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.ResponseIntervalMs = n
		}
	}
	if v := os.Getenv("OCULAR_INTENSITY_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Illumination.IntensityFactor = f
		}
	}
	if v := os.Getenv("OCULAR_INTERLOCK"); v != "" {
		c.Illumination.Interlock = envBool(v)
	}
	if v := os.Getenv("OCULAR_MQTT_BROKER"); v != "" {
		c.Telemetry.Broker = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("OCULAR_CAPTURE_PATH"); v != "" {
		c.Capture.Path = v
	}
}

// Validate checks the values that have a fixed vocabulary
func (c *Config) Validate() error {
	if _, err := controller.ParseVariant(c.Device.Variant); err != nil {
		return fmt.Errorf("device.variant: %w", err)
	}
	switch strings.ToLower(c.Device.Protocol) {
	case "", controller.ProtocolV2, controller.ProtocolLegacy:
	default:
		return fmt.Errorf("device.protocol: unknown protocol %q", c.Device.Protocol)
	}
	if f := c.Illumination.IntensityFactor; f < 0 || f > 1 {
		return fmt.Errorf("illumination.intensity_factor %v outside [0, 1]", f)
	}
	return nil
}

// Variant returns the parsed device variant
func (c *Config) Variant() controller.Variant {
	v, _ := controller.ParseVariant(c.Device.Variant)
	return v
}

// ControllerOptions maps the config onto controller options
func (c *Config) ControllerOptions() controller.Options {
	return controller.Options{
		Variant:           c.Variant(),
		IntensityFactor:   c.Illumination.IntensityFactor,
		FirmwareMajor:     c.Device.FirmwareMajor,
		FirmwareMinor:     c.Device.FirmwareMinor,
		TriggerPulseWidth: time.Duration(c.Engine.TriggerPulseUs) * time.Microsecond,
	}
}

// EngineOptions maps the config onto engine options
func (c *Config) EngineOptions() controller.EngineOptions {
	return controller.EngineOptions{
		PollInterval:     time.Duration(c.Engine.PollIntervalUs) * time.Microsecond,
		StrobeResolution: time.Duration(c.Engine.StrobeResolutionUs) * time.Microsecond,
	}
}

// Codec builds the configured wire codec
func (c *Config) Codec() (controller.Codec, error) {
	return controller.NewCodec(c.Device.Protocol, time.Duration(c.Engine.ResponseIntervalMs)*time.Millisecond)
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to its YAML file
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.path
	if path == "" {
		path = DefaultPath
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
