// Package config loads the optional YAML daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors the command-line flags. Zero values fall back to defaults.
type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Control ControlConfig `yaml:"control"`
}

type GPIOConfig struct {
	Chip string `yaml:"chip"`
	Line string `yaml:"line"`
	// Interval is the toggle interval in whole seconds.
	Interval    uint32 `yaml:"interval"`
	MaxInterval uint32 `yaml:"max_interval"`
}

type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type ControlConfig struct {
	Socket string `yaml:"socket"`
}

// Defaults used when neither the file nor a flag sets a value.
const (
	DefaultChip          = "gpiochip0"
	DefaultLine          = "GPIO20"
	DefaultInterval      = 5
	DefaultMaxInterval   = 24 * 60 * 60
	DefaultBroker        = "tcp://192.168.1.200:1883"
	DefaultHeartbeat     = 15 * time.Minute
	DefaultHTTPAddr      = ":80"
	DefaultControlSocket = "/run/gpio-blinker.sock"
)

// Default returns a Config holding every default.
func Default() Config {
	return Config{
		GPIO: GPIOConfig{
			Chip:        DefaultChip,
			Line:        DefaultLine,
			Interval:    DefaultInterval,
			MaxInterval: DefaultMaxInterval,
		},
		MQTT: MQTTConfig{
			Broker:    DefaultBroker,
			Heartbeat: DefaultHeartbeat,
		},
		HTTP:    HTTPConfig{Addr: DefaultHTTPAddr},
		Control: ControlConfig{Socket: DefaultControlSocket},
	}
}

// Load reads path and fills unset fields with defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates the result.
// Empty strings for mqtt.broker, http.addr and control.socket must be
// written as "off" to disable those surfaces, since an absent key means default.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	def := Default()
	if cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = def.GPIO.Chip
	}
	if cfg.GPIO.Line == "" {
		cfg.GPIO.Line = def.GPIO.Line
	}
	if cfg.GPIO.Interval == 0 {
		cfg.GPIO.Interval = def.GPIO.Interval
	}
	if cfg.GPIO.MaxInterval == 0 {
		cfg.GPIO.MaxInterval = def.GPIO.MaxInterval
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = def.MQTT.Broker
	}
	if cfg.MQTT.Heartbeat == 0 {
		cfg.MQTT.Heartbeat = def.MQTT.Heartbeat
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = def.HTTP.Addr
	}
	if cfg.Control.Socket == "" {
		cfg.Control.Socket = def.Control.Socket
	}

	cfg.MQTT.Broker = offToEmpty(cfg.MQTT.Broker)
	cfg.HTTP.Addr = offToEmpty(cfg.HTTP.Addr)
	cfg.Control.Socket = offToEmpty(cfg.Control.Socket)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.GPIO.Line == "" {
		return fmt.Errorf("gpio.line is required")
	}
	if c.GPIO.Interval == 0 {
		return fmt.Errorf("gpio.interval must be > 0")
	}
	if c.GPIO.Interval > c.GPIO.MaxInterval {
		return fmt.Errorf("gpio.interval %d exceeds gpio.max_interval %d", c.GPIO.Interval, c.GPIO.MaxInterval)
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt.heartbeat must be >= 0")
	}
	return nil
}

func offToEmpty(s string) string {
	if s == "off" {
		return ""
	}
	return s
}
