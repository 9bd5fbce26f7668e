// Package config resolves runtime settings and loads the YAML
// configuration files for enforcement profiles and sequence tables.
package config

import (
	"os"
	"path/filepath"
)

// Settings holds resolved paths for the store and the event journal.
// Resolution priority: explicit values > RINGI_HOME environment > defaults.
type Settings struct {
	home        string
	dbPath      string
	journalPath string
}

// Load resolves settings from the environment
func Load() (Settings, error) {
	home := os.Getenv("RINGI_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return Settings{}, err
		}
		home = filepath.Join(userHome, ".ringi")
	}
	return Settings{
		home:        home,
		dbPath:      filepath.Join(home, "ringi.db"),
		journalPath: filepath.Join(home, "events.ndjson"),
	}, nil
}

// Home returns the base directory for ringi state
func (s Settings) Home() string {
	return s.home
}

// DBPath returns the SQLite database file path
func (s Settings) DBPath() string {
	return s.dbPath
}

// JournalPath returns the NDJSON event journal path
func (s Settings) JournalPath() string {
	return s.journalPath
}
