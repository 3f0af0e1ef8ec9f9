package config

import "fmt"

// ConfigLoadError reports configuration that could not be loaded. It is
// fatal to startup.
type ConfigLoadError struct {
	// Source is the file path or URL that failed.
	Source string
	// Stage is one of "read", "fetch", "parse" or "validate".
	Stage string
	Err   error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("failed to %s configuration from %s: %v", e.Stage, e.Source, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, &ConfigLoadError{}) to match any load error.
func (e *ConfigLoadError) Is(target error) bool {
	_, ok := target.(*ConfigLoadError)
	return ok
}
