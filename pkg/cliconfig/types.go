// Package cliconfig provides configuration types and loading for the
// supamocka CLI.
package cliconfig

import "time"

// CLIConfig represents the complete configuration for the supamocka CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Local config file (.supamockarc.yaml in current directory), or the file named by --config
// 4. Global config file (~/.config/supamocka/config.yaml)
// 5. Default values (lowest priority)
//
// Connection settings are not part of this file. They live in the session
// store so the console can react to edits.
type CLIConfig struct {
	// Session store settings
	Store   string `yaml:"store" json:"store"`
	DataDir string `yaml:"dataDir" json:"dataDir"`

	// Logging settings
	LogLevel    string `yaml:"logLevel" json:"logLevel"`
	LogFormat   string `yaml:"logFormat" json:"logFormat"`
	Diagnostics bool   `yaml:"diagnostics" json:"diagnostics"`

	// Request timeout for every call to the project
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Output settings
	Verbose bool `yaml:"verbose" json:"verbose"`
	JSON    bool `yaml:"json" json:"json"`

	// Source tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records the keys present in a loaded file so that an
	// explicit false can override a true from a lower layer.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)

// Keys lists the config keys in display order.
var Keys = []string{"store", "dataDir", "logLevel", "logFormat", "diagnostics", "timeout", "verbose", "json"}
