package config

import (
	"os"
	"strconv"

	"github.com/rshade/commutesim/internal/cache"
)

// Environment overrides.
const (
	EnvOutputFormat = "COMMUTESIM_OUTPUT_FORMAT"
	EnvLogLevel     = "COMMUTESIM_LOG_LEVEL"
	EnvLogFormat    = "COMMUTESIM_LOG_FORMAT"
	EnvLogFile      = "COMMUTESIM_LOG_FILE"
	EnvWorkers      = "COMMUTESIM_WORKERS"
	EnvBatchSize    = "COMMUTESIM_BATCH_SIZE"
	EnvRuns         = "COMMUTESIM_RUNS"
	EnvFactors      = "COMMUTESIM_FACTORS"
	EnvListen       = "COMMUTESIM_LISTEN"
	EnvRateLimit    = "COMMUTESIM_RATE_LIMIT"
)

// ApplyEnv overlays COMMUTESIM_* variables onto c. Unparseable numbers are
// ignored.
func ApplyEnv(c *Config) {
	setString(&c.Output.DefaultFormat, EnvOutputFormat)
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
	setString(&c.Logging.File, EnvLogFile)
	setInt(&c.Engine.Workers, EnvWorkers)
	setInt(&c.Engine.BatchSize, EnvBatchSize)
	setInt(&c.Engine.DefaultRuns, EnvRuns)
	setString(&c.Engine.Factors, EnvFactors)
	setString(&c.Server.Listen, EnvListen)
	if v, err := strconv.ParseFloat(os.Getenv(EnvRateLimit), 64); err == nil {
		c.Server.RateLimit = v
	}

	c.Cache.Enabled = cache.EnabledFromEnv(c.Cache.Enabled)
	c.Cache.TTLSeconds = cache.TTLFromEnv(c.Cache.TTLSeconds)
	c.Cache.Directory = cache.DirFromEnv(c.Cache.Directory)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = n
	}
}
