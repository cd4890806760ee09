package cliconfig

import (
	"fmt"
	"os"
	"time"
)

// Environment variable names
const (
	EnvStore       = "SUPAMOCKA_STORE"
	EnvDataDir     = "SUPAMOCKA_DATA_DIR"
	EnvLogLevel    = "SUPAMOCKA_LOG_LEVEL"
	EnvLogFormat   = "SUPAMOCKA_LOG_FORMAT"
	EnvTimeout     = "SUPAMOCKA_TIMEOUT"
	EnvDiagnostics = "SUPAMOCKA_DIAGNOSTICS"
	EnvVerbose     = "SUPAMOCKA_VERBOSE"
	EnvJSON        = "SUPAMOCKA_JSON"
	EnvConfig      = "SUPAMOCKA_CONFIG"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment.
func LoadEnvConfig(cfg *CLIConfig) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	setString := func(env, key string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
			cfg.Sources[key] = SourceEnv
		}
	}
	setBool := func(env, key string, dst *bool) {
		if v := os.Getenv(env); v != "" {
			*dst = parseBool(v)
			cfg.Sources[key] = SourceEnv
		}
	}

	setString(EnvStore, "store", &cfg.Store)
	setString(EnvDataDir, "dataDir", &cfg.DataDir)
	setString(EnvLogLevel, "logLevel", &cfg.LogLevel)
	setString(EnvLogFormat, "logFormat", &cfg.LogFormat)
	setBool(EnvDiagnostics, "diagnostics", &cfg.Diagnostics)
	setBool(EnvVerbose, "verbose", &cfg.Verbose)
	setBool(EnvJSON, "json", &cfg.JSON)

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
		cfg.Sources["timeout"] = SourceEnv
	}
	return nil
}

// GetConfigPathFromEnv returns the explicit config file path from the
// environment, or empty string.
func GetConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}

func parseBool(v string) bool {
	return v == "true" || v == "1" || v == "yes"
}
