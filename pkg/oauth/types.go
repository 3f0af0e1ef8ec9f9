package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultExpiryMargin is the default margin when checking token expiry.
// This accounts for clock skew and network latency.
const DefaultExpiryMargin = 30 * time.Second

const (
	// WellKnownAuthorizationServer is the RFC 8414 metadata path.
	WellKnownAuthorizationServer = "/.well-known/oauth-authorization-server"

	// WellKnownOpenIDConfiguration is the OIDC discovery path.
	WellKnownOpenIDConfiguration = "/.well-known/openid-configuration"
)

// DiscoveryURLs returns the metadata URLs that are queried for issuer.
func DiscoveryURLs(issuer string) []string {
	issuer = strings.TrimSuffix(issuer, "/")
	return []string{
		issuer + WellKnownAuthorizationServer,
		issuer + WellKnownOpenIDConfiguration,
	}
}

// Metadata represents OAuth 2.0 Authorization Server Metadata as defined in
// RFC 8414, including the OpenID Connect discovery fields the client uses.
type Metadata struct {
	// Issuer is the authorization server's issuer identifier.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint.
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string `json:"token_endpoint"`

	// UserinfoEndpoint is the URL of the userinfo endpoint (OIDC).
	UserinfoEndpoint string `json:"userinfo_endpoint,omitempty"`

	// RevocationEndpoint is the URL of the RFC 7009 revocation endpoint.
	RevocationEndpoint string `json:"revocation_endpoint,omitempty"`

	// EndSessionEndpoint is the OIDC RP-initiated logout endpoint.
	EndSessionEndpoint string `json:"end_session_endpoint,omitempty"`

	// JwksURI is the URL of the JSON Web Key Set.
	JwksURI string `json:"jwks_uri,omitempty"`

	// ScopesSupported lists the OAuth 2.0 scope values supported.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// ResponseTypesSupported lists the response_type values supported.
	ResponseTypesSupported []string `json:"response_types_supported,omitempty"`

	// CodeChallengeMethodsSupported lists the PKCE code challenge methods.
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// SupportsPKCE returns true if the server supports S256 PKCE.
func (m *Metadata) SupportsPKCE() bool {
	for _, method := range m.CodeChallengeMethodsSupported {
		if method == "S256" {
			return true
		}
	}
	// If not specified, assume S256 is supported (OAuth 2.1 requirement)
	return len(m.CodeChallengeMethodsSupported) == 0
}

// Endpoint converts the metadata into an oauth2.Endpoint.
func (m *Metadata) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   m.AuthorizationEndpoint,
		TokenURL:  m.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// Validate checks that the endpoints needed for the authorization-code flow
// are present.
func (m *Metadata) Validate() error {
	var missing []string
	if m.AuthorizationEndpoint == "" {
		missing = append(missing, "authorization_endpoint")
	}
	if m.TokenEndpoint == "" {
		missing = append(missing, "token_endpoint")
	}
	if len(missing) > 0 {
		return &MetadataError{Issuer: m.Issuer, Missing: missing}
	}
	return nil
}

// MetadataError reports provider metadata that cannot drive a login.
type MetadataError struct {
	Issuer  string
	Missing []string
}

func (e *MetadataError) Error() string {
	return "provider metadata for " + e.Issuer + " is missing " + strings.Join(e.Missing, ", ")
}
