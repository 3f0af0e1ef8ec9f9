package config

import "time"

const (
	// DefaultIssuer is Google's OpenID Connect issuer.
	DefaultIssuer = "https://accounts.google.com"

	// DefaultRedirectURL is the loopback callback the CLI listens on.
	DefaultRedirectURL = "http://localhost:3000/callback"

	// DefaultConfigURL is the runtime configuration served next to the web
	// frontend during local development.
	DefaultConfigURL = "http://localhost:3000/assets/app.config.json"

	// DefaultRenewalFactor renews once three quarters of the token lifetime
	// have elapsed.
	DefaultRenewalFactor = 0.75

	// DefaultMaxUploadBytes caps uploads at 512 MiB.
	DefaultMaxUploadBytes = 512 << 20
)

// DefaultScopes are the OIDC scopes requested at login.
var DefaultScopes = []string{"openid", "profile", "email"}

// DefaultAllowedExtensions are the ROM formats the catalog accepts.
var DefaultAllowedExtensions = []string{
	".gb", ".gbc", ".gba", ".nes", ".sfc", ".smc", ".n64", ".z64", ".nds",
}

// GetDefaultSettings returns the default configuration.
func GetDefaultSettings() Settings {
	return Settings{
		ConfigURL: DefaultConfigURL,
		LogLevel:  "info",
		Auth: AuthSettings{
			Issuer:        DefaultIssuer,
			RedirectURL:   DefaultRedirectURL,
			Scopes:        append([]string(nil), DefaultScopes...),
			Credential:    CredentialIDToken,
			RenewalFactor: DefaultRenewalFactor,
		},
		Catalog: CatalogSettings{
			PollInterval:   5 * time.Second,
			MaxPolls:       60,
			Workers:        2,
			RequestTimeout: 30 * time.Second,
		},
		Upload: UploadSettings{
			AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
			MaxSizeBytes:      DefaultMaxUploadBytes,
		},
	}
}
