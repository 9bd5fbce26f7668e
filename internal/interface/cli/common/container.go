package common

import (
	"os"

	"github.com/spf13/afero"

	"github.com/tsubakihara/ringi/internal/infrastructure/config"
	"github.com/tsubakihara/ringi/internal/infrastructure/di"
)

// InitializeContainer creates a DI container from environment settings
func InitializeContainer() (*di.Container, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(os.Stderr, ParseLogLevel(os.Getenv("RINGI_LOG_LEVEL")))

	return di.NewContainer(di.Config{
		DBPath:      settings.DBPath(),
		JournalPath: settings.JournalPath(),
		Fs:          afero.NewOsFs(),
		Logger:      logger,
	})
}
