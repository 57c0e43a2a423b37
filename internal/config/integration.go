package config

import "sync"

var (
	globalConfig   *Config    //nolint:gochecknoglobals // Resolved once per CLI invocation.
	globalConfigMu sync.Mutex //nolint:gochecknoglobals // Guards globalConfig.
)

// SetGlobalConfig installs the configuration used by the current process.
func SetGlobalConfig(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig returns the process configuration, resolving it with New on
// first use.
func GetGlobalConfig() *Config {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	if globalConfig == nil {
		globalConfig = New()
	}
	return globalConfig
}

// ResetGlobalConfigForTest clears the process configuration.
func ResetGlobalConfigForTest() {
	SetGlobalConfig(nil)
}
