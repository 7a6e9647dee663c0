// Package logging configures the process-wide slog logger from the
// environment.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	// EnvFormat selects the handler: json or text.
	EnvFormat = "LOG_FORMAT"
	// EnvLevel is the minimum severity that is written.
	EnvLevel = "LOG_LEVEL"
	// EnvSource adds the calling file and line to each record when true.
	EnvSource = "LOG_SOURCE"

	appName       = "copyjobctl"
	defaultFormat = "json"
)

type Config struct {
	Format    string
	Level     slog.Level
	AddSource bool
}

type BootstrapOptions struct {
	Command string
	Writer  io.Writer
}

func DefaultConfig() Config {
	return Config{Format: defaultFormat, Level: slog.LevelInfo}
}

// LoadConfigFromEnv reads LOG_FORMAT, LOG_LEVEL and LOG_SOURCE. Empty values
// keep the defaults; anything else that does not parse is an error.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if raw := strings.ToLower(strings.TrimSpace(os.Getenv(EnvFormat))); raw != "" {
		if raw != "json" && raw != "text" {
			return Config{}, fmt.Errorf("%s must be one of: json, text", EnvFormat)
		}
		cfg.Format = raw
	}

	if raw := strings.TrimSpace(os.Getenv(EnvLevel)); raw != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("%s must be one of: debug, info, warn, error", EnvLevel)
		}
		cfg.Level = level
	}

	if raw := strings.TrimSpace(os.Getenv(EnvSource)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a boolean", EnvSource)
		}
		cfg.AddSource = v
	}
	return cfg, nil
}

// NewLogger tags every record with the app name and the cobra command path.
func NewLogger(cfg Config, writer io.Writer, command string) *slog.Logger {
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	command = strings.TrimSpace(command)
	if command == "" {
		command = appName
	}
	return slog.New(handler).With("app", appName, "command", command)
}

// BootstrapFromEnv installs the logger described by the environment as the
// slog default and returns it.
func BootstrapFromEnv(opts BootstrapOptions) (*slog.Logger, error) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, opts.Writer, opts.Command)
	slog.SetDefault(logger)
	return logger, nil
}
