package cliconfig

import (
	"fmt"

	"github.com/getmockd/supamocka/pkg/kvstore"
	"github.com/getmockd/supamocka/pkg/logging"
)

// Validate checks the configuration for invalid values.
func (c *CLIConfig) Validate() error {
	if !kvstore.ValidBackend(c.Store) {
		return fmt.Errorf("store %q is not supported (use %s, %s or %s)",
			c.Store, kvstore.BackendFile, kvstore.BackendSQLite, kvstore.BackendMemory)
	}
	if c.LogLevel != "" && !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("logLevel %q is not supported (use debug, info, warn or error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "", string(logging.FormatText), string(logging.FormatJSON):
	default:
		return fmt.Errorf("logFormat %q is not supported (use text or json)", c.LogFormat)
	}
	if c.Timeout != 0 && (c.Timeout < MinTimeout || c.Timeout > MaxTimeout) {
		return fmt.Errorf("timeout %s is out of range (%s-%s)", c.Timeout, MinTimeout, MaxTimeout)
	}
	return nil
}

// ApplyFlag records a value set on the command line.
func (c *CLIConfig) ApplyFlag(key string, apply func(*CLIConfig)) {
	apply(c)
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[key] = SourceFlag
}
