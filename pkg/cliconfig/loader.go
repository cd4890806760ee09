package cliconfig

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/supamocka/pkg/kvstore"
)

// GlobalConfigDir is the directory for global config
const GlobalConfigDir = kvstore.AppName

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".supamockarc.yaml", ".supamockarc.yml"}

// GlobalConfigFileNames are the names to search for global config (in order).
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// FindLocalConfig searches for .supamockarc.yaml or .supamockarc.yml in the current directory.
func FindLocalConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return firstExisting(cwd, LocalConfigFileNames), nil
}

// FindGlobalConfig returns the path to the global config file.
// Returns empty string if not found.
func FindGlobalConfig() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		//nolint:nilerr // no config dir simply means no global config
		return "", nil
	}
	return firstExisting(filepath.Join(configDir, GlobalConfigDir), GlobalConfigFileNames), nil
}

// GetGlobalConfigSearchPaths returns the paths that will be searched for global config.
func GetGlobalConfigSearchPaths() []string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	paths := make([]string, len(GlobalConfigFileNames))
	for i, name := range GlobalConfigFileNames {
		paths[i] = filepath.Join(configDir, GlobalConfigDir, name)
	}
	return paths
}

func firstExisting(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigFile loads a CLIConfig from a YAML file.
func LoadConfigFile(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}

	cfg := CLIConfig{
		Sources:   make(map[string]string),
		SetFields: make(map[string]bool),
	}
	if len(doc.Content) == 0 {
		return &cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{
			Path:    path,
			Line:    root.Line,
			Column:  root.Column,
			Message: "expected a mapping of settings",
		}
	}
	if err := root.Decode(&cfg); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		cfg.SetFields[root.Content[i].Value] = true
	}
	return &cfg, nil
}

// ConfigError represents a configuration file error with location info.
type ConfigError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

// LoadAll loads configuration from all sources and merges them.
// Precedence: env > local config (or explicitPath) > global config > defaults.
// Flags are applied by the caller with ApplyFlag.
//
// A missing file is skipped. A malformed one is an error, as is a missing
// explicitPath.
func LoadAll(explicitPath string) (*CLIConfig, error) {
	cfg := NewDefault()

	globalPath, _ := FindGlobalConfig()
	if err := mergeFile(cfg, globalPath, SourceGlobal); err != nil {
		return nil, err
	}

	if explicitPath != "" {
		if err := mergeFile(cfg, explicitPath, SourceFile); err != nil {
			return nil, err
		}
	} else {
		localPath, _ := FindLocalConfig()
		if err := mergeFile(cfg, localPath, SourceLocal); err != nil {
			return nil, err
		}
	}

	if err := LoadEnvConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *CLIConfig, path, source string) error {
	if path == "" {
		return nil
	}
	fileCfg, err := LoadConfigFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && source != SourceFile {
			return nil
		}
		return err
	}
	MergeConfig(cfg, fileCfg, source)
	return nil
}
