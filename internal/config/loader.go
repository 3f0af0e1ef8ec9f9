package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"indiestream/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/indiestream"
	configFileName = "config.yaml"
)

// Environment variables that override settings.
const (
	EnvConfigURL    = "INDIESTREAM_CONFIG_URL"
	EnvClientID     = "INDIESTREAM_CLIENT_ID"
	EnvClientSecret = "INDIESTREAM_CLIENT_SECRET"
	EnvIssuer       = "INDIESTREAM_ISSUER"
	EnvLogLevel     = "INDIESTREAM_LOG_LEVEL"
)

// osUserHomeDir is swapped in tests.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigDir returns ~/.config/indiestream.
func DefaultConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadSettings loads config.yaml from configDir on top of the defaults,
// applies environment overrides and validates the result. A missing file is
// not an error.
func LoadSettings(configDir string) (Settings, error) {
	settings := GetDefaultSettings()
	configFilePath := filepath.Join(configDir, configFileName)

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Settings{}, &ConfigLoadError{Source: configFilePath, Stage: "read", Err: err}
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, &ConfigLoadError{Source: configFilePath, Stage: "parse", Err: err}
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnvOverrides(&settings)

	if settings.Auth.SessionFile == "" {
		settings.Auth.SessionFile = filepath.Join(configDir, "session.json")
	}
	for i, ext := range settings.Upload.AllowedExtensions {
		settings.Upload.AllowedExtensions[i] = strings.ToLower(ext)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, &ConfigLoadError{Source: configFilePath, Stage: "validate", Err: err}
	}
	return settings, nil
}

func applyEnvOverrides(s *Settings) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvConfigURL, &s.ConfigURL},
		{EnvClientID, &s.Auth.ClientID},
		{EnvClientSecret, &s.Auth.ClientSecret},
		{EnvIssuer, &s.Auth.Issuer},
		{EnvLogLevel, &s.LogLevel},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

// SaveSettings writes settings to config.yaml in configDir.
func SaveSettings(configDir string, settings Settings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	path := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Info("ConfigLoader", "Saved configuration to %s", path)
	return nil
}
