package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config locates the data home and carries the optional user settings file.
type Config struct {
	HomePath   string
	DBPath     string
	DefaultGym string
	Journal    bool
}

type fileSettings struct {
	DefaultGym string `yaml:"defaultGym"`
	Journal    *bool  `yaml:"journal"`
}

// New resolves the data home (the --home flag value, or ~/.crux when empty)
// and folds in <home>/config.yaml when present.
func New(homePath string) (Config, error) {
	if homePath == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve user home: %w", err)
		}
		homePath = filepath.Join(userHome, ".crux")
	}
	cfg := Config{
		HomePath: homePath,
		DBPath:   filepath.Join(homePath, "crux.db"),
		Journal:  true,
	}

	raw, err := os.ReadFile(filepath.Join(homePath, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config.yaml: %w", err)
	}
	settings := fileSettings{}
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Config{}, fmt.Errorf("parse config.yaml: %w", err)
	}
	cfg.DefaultGym = settings.DefaultGym
	if settings.Journal != nil {
		cfg.Journal = *settings.Journal
	}
	return cfg, nil
}
