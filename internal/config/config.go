// Package config resolves runtime options. Precedence, lowest first:
// built-in defaults, the YAML file named by --config, command-line flags,
// then HARDMON_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/hardmon/internal/alarm"
	"github.com/Dicklesworthstone/hardmon/internal/monitor"
	"github.com/Dicklesworthstone/hardmon/internal/probe"
	"github.com/Dicklesworthstone/hardmon/internal/sensors"
)

// Config carries runtime options for hardmon.
type Config struct {
	Period    time.Duration `yaml:"period"`
	Count     int           `yaml:"count"`
	StatePath string        `yaml:"state_path"`
	LogLevel  string        `yaml:"log_level"`
	LogFile   string        `yaml:"log_file"`

	Panel       bool          `yaml:"panel"`
	GraphWindow time.Duration `yaml:"graph_window"`
	Notify      bool          `yaml:"notify"`
	// NotifyInterval is the minimum gap between desktop notifications.
	NotifyInterval time.Duration `yaml:"notify_interval"`

	TopProcesses int `yaml:"top_processes"`
	// ZoneOffsetHours is the secondary clock zone, east of UTC.
	ZoneOffsetHours int `yaml:"zone_offset_hours"`

	Sensors sensors.Config `yaml:"sensors"`
	Limits  alarm.Limits   `yaml:"limits"`
	Probes  Probes         `yaml:"probes"`

	// ConfigPath is the file the options were read from, if any.
	ConfigPath string `yaml:"-"`
}

// Probes toggles and tunes the background probes.
type Probes struct {
	FreqCount int `yaml:"freq_count"`
	FreqSize  int `yaml:"freq_size"`

	Ping        bool          `yaml:"ping"`
	PingHost    string        `yaml:"ping_host"`
	PingTimeout time.Duration `yaml:"ping_timeout"`

	Bluetooth              bool          `yaml:"bluetooth"`
	BluetoothBatteryPeriod time.Duration `yaml:"bluetooth_battery_period"`
	BluetoothReload        bool          `yaml:"bluetooth_reload"`
	BluetoothMaxDevices    int           `yaml:"bluetooth_max_devices"`

	Wlan bool `yaml:"wlan"`
}

func Default() Config {
	return Config{
		Period:          time.Second,
		Count:           1,
		StatePath:       filepath.Join(os.TempDir(), "hardmon-counters.json"),
		LogLevel:        "error",
		GraphWindow:     600 * time.Second,
		NotifyInterval:  time.Minute,
		TopProcesses:    2,
		ZoneOffsetHours: 3,
		Sensors:         sensors.DefaultConfig(),
		Limits:          alarm.DefaultLimits(),
		Probes: Probes{
			FreqCount:              5,
			FreqSize:               4,
			Ping:                   true,
			PingHost:               "8.8.8.8",
			PingTimeout:            5 * time.Second,
			Bluetooth:              true,
			BluetoothBatteryPeriod: 3 * time.Hour,
			BluetoothReload:        true,
			BluetoothMaxDevices:    5,
			Wlan:                   true,
		},
	}
}

func newFlagSet(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("hardmon", pflag.ContinueOnError)
	fs.DurationVarP(&cfg.Period, "period", "p", cfg.Period, "sampling period")
	fs.IntVarP(&cfg.Count, "count", "c", cfg.Count, "lines to print, 0 for no limit")
	fs.StringVarP(&cfg.StatePath, "savefile", "f", cfg.StatePath, "file keeping counters between runs, empty to disable")
	fs.StringVarP(&cfg.LogLevel, "log", "l", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "write logs to this file instead of stderr")
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "YAML file with sensor names and limits")
	fs.BoolVar(&cfg.Panel, "panel", cfg.Panel, "run the live terminal panel")
	fs.DurationVar(&cfg.GraphWindow, "graph-time", cfg.GraphWindow, "span of the panel load graph, 0 to hide it")
	fs.BoolVar(&cfg.Notify, "notify", cfg.Notify, "send desktop notifications for alarms")
	return fs
}

// FromFlags parses flags, the optional config file and environment
// overrides. It returns pflag.ErrHelp when help was requested.
func FromFlags(args []string) (Config, error) {
	cfg := Default()
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return Config{}, err
	}

	if path := cfg.ConfigPath; path != "" {
		cfg = Default()
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
		// Flags win over the file.
		if err := newFlagSet(&cfg).Parse(args); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HARDMON_PERIOD"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Period = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Period = parsed
		}
	}
	if v, ok := os.LookupEnv("HARDMON_SAVEFILE"); ok {
		cfg.StatePath = v
	}
	if v := os.Getenv("HARDMON_LOG"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HARDMON_PING"); v == "0" {
		cfg.Probes.Ping = false
	}
	if v := os.Getenv("HARDMON_BLUETOOTH"); v == "0" {
		cfg.Probes.Bluetooth = false
	}
	if v := os.Getenv("HARDMON_WLAN"); v == "0" {
		cfg.Probes.Wlan = false
	}
	if v := os.Getenv("HARDMON_NOTIFY"); v == "1" {
		cfg.Notify = true
	}
}

// Validate rejects options the monitor cannot run with.
func (c Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %v", c.Period)
	}
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}
	if c.GraphWindow < 0 {
		return fmt.Errorf("graph-time must not be negative, got %v", c.GraphWindow)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// Monitor converts the options into a monitor configuration.
func (c Config) Monitor() monitor.Config {
	return monitor.Config{
		Period:          c.Period,
		StatePath:       c.StatePath,
		Sensors:         c.Sensors,
		Limits:          c.Limits,
		Freq:            probe.FreqConfig{Count: c.Probes.FreqCount, Size: c.Probes.FreqSize},
		EnablePing:      c.Probes.Ping,
		PingHost:        c.Probes.PingHost,
		PingTimeout:     c.Probes.PingTimeout,
		EnableBluetooth: c.Probes.Bluetooth,
		Bluetooth: probe.BluetoothConfig{
			BatteryPeriod: c.Probes.BluetoothBatteryPeriod,
			MaxDevices:    c.Probes.BluetoothMaxDevices,
		},
		BluetoothReload: c.Probes.BluetoothReload,
		EnableWlan:      c.Probes.Wlan,
		TopProcesses:    c.TopProcesses,
		Zone:            time.FixedZone(fmt.Sprintf("UTC%+d", c.ZoneOffsetHours), c.ZoneOffsetHours*60*60),
	}
}
