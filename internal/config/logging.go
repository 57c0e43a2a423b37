package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rshade/commutesim/internal/logging"
)

// ToLoggingConfig converts the logging section for logging.NewLoggerWithPath.
// A configured file sends output there; otherwise logs go to stderr.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if l.Level != "" {
		cfg.Level = l.Level
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	if l.File != "" {
		cfg.Output = logging.OutputFile
		cfg.File = l.File
	}
	return cfg
}

// EnsureLogDir creates the directory of the configured log file.
func (c *Config) EnsureLogDir() error {
	if c.Logging.File == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	return nil
}
