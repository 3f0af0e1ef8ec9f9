package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxSizeBytes is the upload limit when none is configured.
const DefaultMaxSizeBytes int64 = 512 << 20

// DefaultAllowedExtensions are accepted when no allow-list is configured.
var DefaultAllowedExtensions = []string{".gb", ".gbc", ".gba", ".nes", ".sfc", ".smc", ".n64", ".z64", ".nds"}

var titlePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// UploadRequest is a game to be uploaded.
type UploadRequest struct {
	Title    string `validate:"required,max=64,game_title"`
	Filename string `validate:"required,max=255,plain_filename,allowed_extension"`
	File     []byte `validate:"required,min=1"`
}

// Validator checks upload requests against the configured rules.
type Validator struct {
	validate *validator.Validate
	allowed  map[string]bool
	maxSize  int64
}

// NewValidator creates a Validator. Extensions are matched case-insensitively
// and must include the leading dot.
func NewValidator(allowedExtensions []string, maxSizeBytes int64) (*Validator, error) {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSizeBytes
	}

	v := &Validator{
		validate: validator.New(),
		allowed:  make(map[string]bool, len(allowedExtensions)),
		maxSize:  maxSizeBytes,
	}
	for _, ext := range allowedExtensions {
		v.allowed[strings.ToLower(ext)] = true
	}

	rules := map[string]validator.Func{
		"game_title":        validateTitle,
		"plain_filename":    validatePlainFilename,
		"allowed_extension": v.validateExtension,
	}
	for tag, fn := range rules {
		if err := v.validate.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return v, nil
}

// AllowedExtensions returns the accepted extensions, sorted.
func (v *Validator) AllowedExtensions() []string {
	out := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Validate returns a *ValidationError describing every invalid field, or
// nil.
func (v *Validator) Validate(req UploadRequest) error {
	var fields []FieldError

	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			fields = append(fields, FieldError{
				Field:   strings.ToLower(e.StructField()),
				Message: v.message(e),
			})
		}
	}
	if int64(len(req.File)) > v.maxSize {
		fields = append(fields, FieldError{
			Field:   "file",
			Message: fmt.Sprintf("must not exceed %d bytes", v.maxSize),
		})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (v *Validator) message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "game_title":
		return "must start with a letter or digit and contain only letters, digits, '-' and '_'"
	case "plain_filename":
		return "must be a file name without directories"
	case "allowed_extension":
		return fmt.Sprintf("extension %q is not allowed (allowed: %s)",
			filepath.Ext(e.Value().(string)), strings.Join(v.AllowedExtensions(), " "))
	default:
		return fmt.Sprintf("failed validation: %s", e.Tag())
	}
}

func validateTitle(fl validator.FieldLevel) bool {
	return titlePattern.MatchString(fl.Field().String())
}

func validatePlainFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

func (v *Validator) validateExtension(fl validator.FieldLevel) bool {
	return v.allowed[strings.ToLower(filepath.Ext(fl.Field().String()))]
}
