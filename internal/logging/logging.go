// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects the log level and format
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// DefaultConfig logs info and above as text
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text"}
}

// Validate checks the level and format names
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.level()); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.format() {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Format)
	}
}

func (c Config) level() string {
	if c.Level == "" {
		return "info"
	}
	return strings.ToLower(c.Level)
}

func (c Config) format() string {
	if c.Format == "" {
		return "text"
	}
	return strings.ToLower(c.Format)
}

// New creates a logger writing to stderr; stdout stays free for the MCP
// stdio transport.
func New(cfg Config) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput creates a logger writing to w
func NewWithOutput(cfg Config, w io.Writer) (*logrus.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logrus.ParseLevel(cfg.level())

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if cfg.format() == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger, nil
}

// Discard returns a logger that drops everything
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
