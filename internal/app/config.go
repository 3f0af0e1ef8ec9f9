package app

import (
	"io"
	"net/http"

	"indiestream/internal/config"
	"indiestream/internal/session"
)

// Config holds the application configuration.
type Config struct {
	// Debug forces debug logging regardless of the settings file.
	Debug bool

	// ConfigDir is the settings directory. Empty means the default.
	ConfigDir string

	// NoBrowser prints the login URL instead of opening a browser.
	NoBrowser bool

	// Out receives login prompts. Defaults to stderr.
	Out io.Writer

	// Settings, when set, is used instead of loading config.yaml.
	Settings *config.Settings

	// Navigator overrides how the login URL is opened.
	Navigator session.Navigator

	// HTTPClient is the base client for provider and catalog traffic.
	HTTPClient *http.Client
}

// NewConfig creates a new application configuration.
func NewConfig(debug bool, configDir string) *Config {
	return &Config{
		Debug:     debug,
		ConfigDir: configDir,
	}
}
