// Package config loads the gameflow CLI settings from a YAML file, a .env
// file and GAMEFLOW_* environment variables, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Nested settings add their
// section, e.g. GAMEFLOW_STORE_BACKEND or GAMEFLOW_ENGINE_MAX_STEPS.
const EnvPrefix = "GAMEFLOW"

// Config holds the CLI settings.
type Config struct {
	LogLevel  string `yaml:"log_level" split_words:"true" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" split_words:"true" validate:"oneof=text json"`

	// Graph is the default graph file for run, serve and inspect.
	Graph string `yaml:"graph"`

	Store  StoreConfig  `yaml:"store"`
	HTTP   HTTPConfig   `yaml:"http"`
	Engine EngineConfig `yaml:"engine"`
	Runner RunnerConfig `yaml:"runner"`
}

// StoreConfig selects the flow state store.
type StoreConfig struct {
	Backend string        `yaml:"backend" validate:"oneof=memory file redis badger"`
	Path    string        `yaml:"path" validate:"required_if=Backend file,required_if=Backend badger"`
	Redis   RedisConfig   `yaml:"redis"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	// EncryptionKey is a base64 AES-256 key sealing stored states.
	EncryptionKey string `yaml:"encryption_key" split_words:"true" validate:"omitempty,base64"`
	// PreviousKeys still decrypt states written before a key rotation.
	PreviousKeys []string `yaml:"previous_keys" split_words:"true" validate:"dive,base64"`
}

// RedisConfig holds the redis backend parameters.
type RedisConfig struct {
	Addr   string `yaml:"addr" validate:"omitempty,hostname_port"`
	Prefix string `yaml:"prefix"`
	// Lock enables the distributed instance lock.
	Lock bool `yaml:"lock"`
}

// HTTPConfig configures `gameflow serve`.
type HTTPConfig struct {
	Addr    string `yaml:"addr" validate:"required,hostname_port"`
	Metrics bool   `yaml:"metrics"`
	Tracing bool   `yaml:"tracing"`
	// TraceExporter selects where spans go when Tracing is on.
	TraceExporter string `yaml:"trace_exporter" split_words:"true" validate:"oneof=stdout otlp"`
	OTLPEndpoint  string `yaml:"otlp_endpoint" split_words:"true" validate:"omitempty,hostname_port"`
}

// EngineConfig configures the runtime.
type EngineConfig struct {
	HistoryLimit int `yaml:"history_limit" split_words:"true" validate:"gte=0"`
	// MaxSteps bounds unattended runs (Advance).
	MaxSteps    int   `yaml:"max_steps" split_words:"true" validate:"gt=0"`
	Breakpoints []int `yaml:"breakpoints" validate:"dive,gte=0"`
	// LiveCompile recompiles the graph when its file changes.
	LiveCompile bool `yaml:"live_compile" split_words:"true"`
	// Subflows are graph files the subflow action may run, by flow name.
	Subflows []string `yaml:"subflows"`
}

// RunnerConfig bounds the input accepted by `gameflow run`.
type RunnerConfig struct {
	MaxInputSize   int `yaml:"max_input_size" split_words:"true" validate:"gt=0"`
	MaxEventFields int `yaml:"max_event_fields" split_words:"true" validate:"gt=0"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		HTTP: HTTPConfig{
			Addr:          "localhost:8080",
			Metrics:       true,
			TraceExporter: "stdout",
			OTLPEndpoint:  "localhost:4317",
		},
		Engine: EngineConfig{
			HistoryLimit: 256,
			MaxSteps:     10000,
		},
		Runner: RunnerConfig{
			MaxInputSize:   4096,
			MaxEventFields: 32,
		},
	}
}

// Load reads path over the defaults (a missing file is not an error when
// path is empty or optional is true), applies .env and environment overrides
// and validates the result.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && optional:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
