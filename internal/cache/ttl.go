package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL bounds and environment overrides.
const (
	DefaultTTLSeconds = 24 * 3600
	MinTTLSeconds     = 60
	MaxTTLSeconds     = 30 * 24 * 3600

	hoursPerDay    = 24
	minutesPerHour = 60

	EnvTTLSeconds   = "COMMUTESIM_CACHE_TTL_SECONDS"
	EnvCacheEnabled = "COMMUTESIM_CACHE_ENABLED"
	EnvCacheDir     = "COMMUTESIM_CACHE_DIR"
)

// ErrInvalidTTL is returned for a TTL outside [MinTTLSeconds, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// TTLFromEnv returns the TTL from the environment, or fallback when unset or
// out of range.
func TTLFromEnv(fallback int) int {
	v := os.Getenv(EnvTTLSeconds)
	if v == "" {
		return fallback
	}
	ttl, err := strconv.Atoi(v)
	if err != nil || ttl < MinTTLSeconds || ttl > MaxTTLSeconds {
		return fallback
	}
	return ttl
}

// EnabledFromEnv returns the enabled flag from the environment, or fallback.
func EnabledFromEnv(fallback bool) bool {
	v := os.Getenv(EnvCacheEnabled)
	if v == "" {
		return fallback
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return enabled
}

// DirFromEnv returns the cache directory from the environment, or fallback.
func DirFromEnv(fallback string) string {
	if v := os.Getenv(EnvCacheDir); v != "" {
		return v
	}
	return fallback
}

// ParseTTL accepts integer seconds ("3600") or a duration ("1h30m").
func ParseTTL(s string) (int, error) {
	seconds, err := strconv.Atoi(s)
	if err != nil {
		d, perr := time.ParseDuration(s)
		if perr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", perr)
		}
		seconds = int(d.Seconds())
	}
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return seconds, nil
}

// FormatDuration renders d compactly: "45s", "30m", "2h15m", "3d4h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < hoursPerDay*time.Hour:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	default:
		days := int(d.Hours()) / hoursPerDay
		hours := int(d.Hours()) % hoursPerDay
		if hours == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd%dh", days, hours)
	}
}
