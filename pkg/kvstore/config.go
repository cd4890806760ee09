package kvstore

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user data directory.
const AppName = "supamocka"

// Backend kinds.
const (
	// BackendFile stores every key in one JSON document.
	BackendFile = "file"
	// BackendSQLite stores keys as rows in an embedded SQLite database.
	BackendSQLite = "sqlite"
	// BackendMemory keeps values for the lifetime of the process only.
	BackendMemory = "memory"
)

// File names inside the data directory.
const (
	FileName   = "session.json"
	SQLiteName = "session.db"
)

// Config selects and locates a backend.
type Config struct {
	// Backend is one of BackendFile, BackendSQLite or BackendMemory.
	// Empty means BackendFile.
	Backend string `json:"backend" yaml:"backend"`

	// DataDir is where the backend keeps its files.
	// Defaults to DefaultDataDir().
	DataDir string `json:"dataDir,omitempty" yaml:"dataDir,omitempty"`
}

// ValidBackend reports whether name is a known backend kind.
func ValidBackend(name string) bool {
	switch name {
	case "", BackendFile, BackendSQLite, BackendMemory:
		return true
	}
	return false
}

// DefaultDataDir returns the default data directory following the XDG base directory layout.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName, "data")
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", AppName)
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(home, "AppData", "Local", AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}
