package config

import "time"

// CredentialKind selects which token is sent as the bearer credential.
type CredentialKind string

const (
	// CredentialIDToken sends the OIDC ID token. This is what the catalog
	// API validates.
	CredentialIDToken CredentialKind = "id_token"
	// CredentialAccessToken sends the OAuth access token.
	CredentialAccessToken CredentialKind = "access_token"
)

// Settings is the top-level configuration structure for indiestream.
type Settings struct {
	// ConfigURL is where the runtime configuration document is loaded from.
	ConfigURL string          `yaml:"configUrl" validate:"required,config_source"`
	LogLevel  string          `yaml:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Auth      AuthSettings    `yaml:"auth"`
	Catalog   CatalogSettings `yaml:"catalog"`
	Upload    UploadSettings  `yaml:"upload"`
}

// AuthSettings configures the authorization-code session.
type AuthSettings struct {
	Issuer       string   `yaml:"issuer" validate:"required,http_url"`
	ClientID     string   `yaml:"clientId" validate:"required"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	RedirectURL  string   `yaml:"redirectUrl" validate:"required,loopback_url"`
	Scopes       []string `yaml:"scopes" validate:"required,min=1,dive,required"`

	Credential CredentialKind `yaml:"credential" validate:"oneof=id_token access_token"`

	// RenewalFactor is the fraction of the access token lifetime after
	// which silent renewal runs.
	RenewalFactor float64 `yaml:"renewalFactor" validate:"gt=0,lt=1"`

	// SessionFile overrides the session storage location.
	SessionFile string `yaml:"sessionFile,omitempty"`
}

// CatalogSettings tunes the catalog engine.
type CatalogSettings struct {
	PollInterval   time.Duration `yaml:"pollInterval" validate:"gt=0"`
	MaxPolls       int           `yaml:"maxPolls" validate:"gte=0"`
	Workers        int           `yaml:"workers" validate:"gte=1,lte=16"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gte=0"`
}

// UploadSettings holds the client-side upload rules.
type UploadSettings struct {
	AllowedExtensions []string `yaml:"allowedExtensions" validate:"required,min=1,dive,file_extension"`
	MaxSizeBytes      int64    `yaml:"maxSizeBytes" validate:"gt=0"`
}

// RuntimeConfig is the deployment's runtime configuration document.
type RuntimeConfig struct {
	Production bool   `json:"production"`
	APIURL     string `json:"apiUrl" validate:"required,http_url"`
}
