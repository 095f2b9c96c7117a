// Package config loads environment settings from .env files, an optional
// YAML file and THIMBLE_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danpasecinic/thimble"
)

const (
	EnvConfig   = "THIMBLE_CONFIG"
	EnvUnsealed = "THIMBLE_UNSEALED"
	EnvLogLevel = "THIMBLE_LOG_LEVEL"
)

// Config mirrors the YAML file:
//
//	unsealed: true
//	log_level: debug
//	priorities:
//	  "*github.com/acme/app.Postgres": -10
//	eager:
//	  - "*github.com/acme/app.Cache"
//
// Type names are the ones printed by thimble.TypeName.
type Config struct {
	Unsealed   bool           `yaml:"unsealed"`
	LogLevel   string         `yaml:"log_level"`
	Priorities map[string]int `yaml:"priorities"`
	Eager      []string       `yaml:"eager"`
}

// Load reads the .env files that exist (".env" when none are named), then
// the YAML file at path, or at THIMBLE_CONFIG when path is empty, then
// applies THIMBLE_UNSEALED and THIMBLE_LOG_LEVEL. Variables already set in
// the process win over .env files.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: loading %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvUnsealed); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvUnsealed, v, err)
		}
		c.Unsealed = b
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Level parses LogLevel. An empty level is Info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Options turns the configuration into environment options. A logger writing
// text to stderr is added only when a log level is set.
func (c *Config) Options() ([]thimble.Option, error) {
	opts := []thimble.Option{thimble.WithUnsealed(c.Unsealed)}

	if c.LogLevel != "" {
		level, err := c.Level()
		if err != nil {
			return nil, err
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		opts = append(opts, thimble.WithLogger(slog.New(handler)))
	}
	if len(c.Priorities) > 0 {
		opts = append(opts, thimble.WithPriorities(c.Priorities))
	}
	if len(c.Eager) > 0 {
		opts = append(opts, thimble.WithEagerTypes(c.Eager...))
	}
	return opts, nil
}
