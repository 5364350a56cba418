package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultConfigFile is read when --config is not given. It may be absent.
const defaultConfigFile = ".vdiff.yaml"

// Config is the CLI configuration file.
type Config struct {
	// KeyAttr is the attribute that keys list items.
	KeyAttr string `yaml:"key_attr"`

	// Author is recorded in deltas produced by "diff".
	Author string `yaml:"author"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Color is one of auto, always, never.
	Color string `yaml:"color"`

	// Indent pretty-prints JSON output.
	Indent bool `yaml:"indent"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		KeyAttr:  "key",
		Author:   currentUser(),
		LogLevel: "warn",
		Color:    "auto",
		Indent:   true,
	}
}

// LoadConfig reads path over the defaults. A missing file is an error only
// when it was asked for explicitly.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if c.KeyAttr == "" {
		return errors.New("key_attr must not be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

// Logger builds the slog logger writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "vdiff"
}
