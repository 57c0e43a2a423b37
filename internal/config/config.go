// Package config holds commutesim's application configuration: output,
// logging, engine, cache and server settings.
//
// Values resolve in increasing precedence: built-in defaults, the user file
// (~/.commutesim/config.yaml), a project overlay (./.commutesim/config.yaml,
// merged per top-level section), COMMUTESIM_* environment variables, and
// finally CLI flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rshade/commutesim/internal/batch"
	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/scenario"
)

// Directory and file names.
const (
	DirName        = ".commutesim"
	FileName       = "config.yaml"
	EnvHome        = "COMMUTESIM_HOME"
	cacheDirName   = "cache"
	logDirName     = "logs"
	defaultLogName = "commutesim.log"
)

// Server defaults.
const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultRateLimit    = 5.0
	DefaultBurst        = 10
	DefaultMaxBodyBytes = 1 << 20
)

// Config is the application configuration.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
}

// OutputConfig controls result rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=table json yaml"`
	Precision     int    `yaml:"precision" validate:"gte=0,lte=6"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json text"`
	File   string `yaml:"file,omitempty"`
}

// EngineConfig tunes evaluation.
type EngineConfig struct {
	// Workers bounds parallel runs; 0 selects the CPU count.
	Workers     int    `yaml:"workers" validate:"gte=0"`
	// BatchSize groups individuals for scheduling. It never changes results.
	BatchSize   int    `yaml:"batch_size" validate:"gte=1,lte=100000"`
	DefaultRuns int    `yaml:"default_runs" validate:"gte=1,lte=100000"`
	Factors     string `yaml:"factors,omitempty"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Directory     string `yaml:"directory,omitempty"`
	TTLSeconds    int    `yaml:"ttl_seconds" validate:"gte=60,lte=2592000"`
	MemoryEntries int    `yaml:"memory_entries" validate:"gte=0"`
}

// ServerConfig controls `commutesim serve`.
type ServerConfig struct {
	Listen       string  `yaml:"listen" validate:"required,hostname_port"`
	RateLimit    float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst        int     `yaml:"burst" validate:"gte=1"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" validate:"gte=1024"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{DefaultFormat: "table", Precision: 1},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: EngineConfig{
			Workers:     0,
			BatchSize:   batch.DefaultBatchSize,
			DefaultRuns: scenario.DefaultRuns,
		},
		Cache: CacheConfig{
			Enabled:       true,
			TTLSeconds:    cache.DefaultTTLSeconds,
			MemoryEntries: cache.DefaultMemoryEntries,
		},
		Server: ServerConfig{
			Listen:       DefaultListen,
			RateLimit:    DefaultRateLimit,
			Burst:        DefaultBurst,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// New resolves the configuration from defaults, the user file and the
// environment. An unreadable or invalid user file is ignored.
func New() *Config {
	cfg, err := Load(DefaultPath())
	if err != nil {
		cfg = Default()
		ApplyEnv(cfg)
	}
	return cfg
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// YAML encodes the configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %v fails %q", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

// EffectiveWorkers resolves Workers = 0 to the CPU count.
func (c *Config) EffectiveWorkers() int {
	if c.Engine.Workers > 0 {
		return c.Engine.Workers
	}
	return runtime.NumCPU()
}

// CacheDirectory returns the file cache location.
func (c *Config) CacheDirectory() string {
	if c.Cache.Directory != "" {
		return c.Cache.Directory
	}
	return filepath.Join(Dir(), cacheDirName)
}

// LogFilePath returns the configured log file, or the default under Dir.
func (c *Config) LogFilePath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(Dir(), logDirName, defaultLogName)
}

// Dir returns the commutesim home directory: $COMMUTESIM_HOME or
// ~/.commutesim. It falls back to the working directory when no home
// directory is available.
func Dir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath is the user config file.
func DefaultPath() string {
	return filepath.Join(Dir(), FileName)
}
