package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config/config.toml"

type BackendConfig struct {
	BaseURL   string `toml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms"`
	Language  string `toml:"language"`
}

type StreamConfig struct {
	MaxEventBytes int `toml:"max_event_bytes"`
}

type FilterConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

type NavigationConfig struct {
	FrameMS     int `toml:"frame_ms"`
	HighlightMS int `toml:"highlight_ms"`
}

type TrackerConfig struct {
	BandMargin float64 `toml:"band_margin"`
}

type SourcesConfig struct {
	Policy string `toml:"policy"`
}

type ServerConfig struct {
	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type ReplayConfig struct {
	Port         string `toml:"port"`
	EventDelayMS int    `toml:"event_delay_ms"`
}

type Config struct {
	Backend    BackendConfig    `toml:"backend"`
	Stream     StreamConfig     `toml:"stream"`
	Filter     FilterConfig     `toml:"filter"`
	Navigation NavigationConfig `toml:"navigation"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Sources    SourcesConfig    `toml:"sources"`
	Server     ServerConfig     `toml:"server"`
	Replay     ReplayConfig     `toml:"replay"`
}

func Default() *Config {
	return &Config{
		Backend:    BackendConfig{BaseURL: "http://localhost:8000", TimeoutMS: 60000, Language: "auto"},
		Stream:     StreamConfig{MaxEventBytes: 4 << 20},
		Filter:     FilterConfig{DebounceMS: 300},
		Navigation: NavigationConfig{FrameMS: 16, HighlightMS: 2000},
		Tracker:    TrackerConfig{BandMargin: 0.2},
		Sources:    SourcesConfig{Policy: "append"},
		Server:     ServerConfig{Port: "8080", LogLevel: "info"},
		Replay:     ReplayConfig{Port: "8000", EventDelayMS: 0},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads CONFIG_PATH (or DefaultPath), falling back to defaults
// when the file does not exist, then applies environment overrides.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CHRONO_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("CHRONO_LANGUAGE"); v != "" {
		c.Backend.Language = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("CHRONO_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CHRONO_SOURCE_POLICY"); v != "" {
		c.Sources.Policy = v
	}
	if v := os.Getenv("CHRONO_DEBOUNCE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHRONO_DEBOUNCE_MS %q: %w", v, err)
		}
		c.Filter.DebounceMS = ms
	}
	return nil
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutMS) * time.Millisecond
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Filter.DebounceMS) * time.Millisecond
}

func (c *Config) FrameDelay() time.Duration {
	return time.Duration(c.Navigation.FrameMS) * time.Millisecond
}

func (c *Config) HighlightHold() time.Duration {
	return time.Duration(c.Navigation.HighlightMS) * time.Millisecond
}

func (c *Config) EventDelay() time.Duration {
	return time.Duration(c.Replay.EventDelayMS) * time.Millisecond
}

// LogLevel maps the configured level name, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
