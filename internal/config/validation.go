package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the indiestream rules registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	rules := map[string]validator.Func{
		"loopback_url":   validateLoopbackURL,
		"config_source":  validateConfigSource,
		"file_extension": validateFileExtension,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return v, nil
}

// validateLoopbackURL accepts http URLs on localhost or a loopback address
// with an explicit port, which is where the callback listener binds.
func validateLoopbackURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Scheme != "http" || u.Port() == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validateConfigSource accepts http(s) URLs, file:// URLs and plain paths.
func validateConfigSource(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "file", "":
		return true
	default:
		// Windows drive letters parse as a scheme.
		return len(u.Scheme) == 1
	}
}

func validateFileExtension(fl validator.FieldLevel) bool {
	ext := fl.Field().String()
	return len(ext) > 1 && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext[1:], "./\\")
}

// Validate validates the settings using struct tags.
func (s *Settings) Validate() error {
	v, err := NewValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(s); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// Validate validates the runtime configuration document.
func (r *RuntimeConfig) Validate() error {
	v, err := NewValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(r); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "http_url":
		return fmt.Sprintf("%s must be an http(s) URL", field)
	case "loopback_url":
		return fmt.Sprintf("%s must be an http URL on localhost with a port", field)
	case "config_source":
		return fmt.Sprintf("%s must be an http(s) URL or a file path", field)
	case "file_extension":
		return fmt.Sprintf("%s must be a file extension such as .gba", field)
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
