package cliconfig

import (
	"time"

	"github.com/getmockd/supamocka/pkg/kvstore"
	"github.com/getmockd/supamocka/pkg/logging"
)

// DefaultStore is the default session store backend.
const DefaultStore = kvstore.BackendFile

// DefaultLogLevel keeps the terminal quiet unless something goes wrong.
const DefaultLogLevel = "warn"

// DefaultLogFormat is the default stderr log format.
const DefaultLogFormat = string(logging.FormatText)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// Timeout bounds accepted by Validate.
const (
	MinTimeout = 100 * time.Millisecond
	MaxTimeout = 10 * time.Minute
)

// NewDefault creates a new CLIConfig with default values.
func NewDefault() *CLIConfig {
	cfg := &CLIConfig{
		Store:     DefaultStore,
		DataDir:   kvstore.DefaultDataDir(),
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Timeout:   DefaultTimeout,
		Sources:   make(map[string]string),
	}
	for _, key := range Keys {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// StoreConfig returns the session store configuration.
func (c *CLIConfig) StoreConfig() kvstore.Config {
	return kvstore.Config{Backend: c.Store, DataDir: c.DataDir}
}

// LoggingConfig returns the stderr logging configuration. Verbose forces
// debug level.
func (c *CLIConfig) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.LogLevel)
	cfg.Format = logging.ParseFormat(c.LogFormat)
	if c.Verbose {
		cfg.Level = logging.LevelDebug
	}
	return cfg
}
