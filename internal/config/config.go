// Package config loads the daemon configuration from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Wifi     Wifi     `yaml:"wifi"`
	NTP      NTP      `yaml:"ntp"`
	Timeouts Timeouts `yaml:"timeouts"`
	MQTT     MQTT     `yaml:"mqtt"`
	HTTP     HTTP     `yaml:"http"`
	LED      LED      `yaml:"led"`
	Clock    Clock    `yaml:"clock"`
	Log      Log      `yaml:"log"`
}

// Wifi identifies the access point.
type Wifi struct {
	SSID      string `yaml:"ssid"`
	Password  string `yaml:"password"`
	Interface string `yaml:"interface"`
}

// NTP configures the time server.
type NTP struct {
	Server  string        `yaml:"server"`
	Timeout time.Duration `yaml:"timeout"`
}

// Timeouts are the state machine budgets in seconds.
type Timeouts struct {
	ConnectSeconds          int  `yaml:"connect_seconds"`
	DiscoWaitSeconds        int  `yaml:"disco_wait_seconds"`
	ReconnectBackoffSeconds int  `yaml:"reconnect_backoff_seconds"`
	SyncMaxWaitSeconds      int  `yaml:"sync_max_wait_seconds"`
	SyncRetrySeconds        int  `yaml:"sync_retry_seconds"`
	ResyncDaily             bool `yaml:"resync_daily"`
}

// MQTT configures the event publisher.
type MQTT struct {
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTP configures the status server. An empty Addr disables it.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// LED configures the status indicator. Pin is a line offset on Chip, so
// 0 is a valid line; the LED is only driven when Enabled is set.
type LED struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Pin     int    `yaml:"pin"`
}

// Clock selects how time sync is applied: "system" sets CLOCK_REALTIME,
// "offset" keeps a software correction.
type Clock struct {
	Mode string `yaml:"mode"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Clock modes.
const (
	ClockSystem = "system"
	ClockOffset = "offset"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Wifi: Wifi{Interface: "wlan0"},
		NTP:  NTP{Server: "pool.ntp.org", Timeout: 5 * time.Second},
		Timeouts: Timeouts{
			ConnectSeconds:          30,
			DiscoWaitSeconds:        10,
			ReconnectBackoffSeconds: 60,
			SyncMaxWaitSeconds:      30,
			SyncRetrySeconds:        300,
			ResyncDaily:             true,
		},
		MQTT:  MQTT{Broker: "tcp://192.168.1.200:1883", Heartbeat: 15 * time.Minute},
		HTTP:  HTTP{Addr: ":80"},
		LED:   LED{Chip: "gpiochip0"},
		Clock: Clock{Mode: ClockOffset},
		Log:   Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every timeout is positive and the clock mode is known.
func (c Config) Validate() error {
	var errs []error
	for _, f := range []struct {
		name  string
		value int
	}{
		{"connect_seconds", c.Timeouts.ConnectSeconds},
		{"disco_wait_seconds", c.Timeouts.DiscoWaitSeconds},
		{"reconnect_backoff_seconds", c.Timeouts.ReconnectBackoffSeconds},
		{"sync_max_wait_seconds", c.Timeouts.SyncMaxWaitSeconds},
		{"sync_retry_seconds", c.Timeouts.SyncRetrySeconds},
	} {
		if f.value <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be positive, got %d", f.name, f.value))
		}
	}
	if c.Clock.Mode != ClockSystem && c.Clock.Mode != ClockOffset {
		errs = append(errs, fmt.Errorf("clock.mode must be %q or %q, got %q", ClockSystem, ClockOffset, c.Clock.Mode))
	}
	if c.LED.Pin < 0 {
		errs = append(errs, fmt.Errorf("led.pin must not be negative, got %d", c.LED.Pin))
	}
	return errors.Join(errs...)
}
