// Package oauth provides the OpenID Connect protocol helpers used by the
// indiestream session.
//
// The identity provider is treated as an external collaborator. This package
// only covers the parts of the protocol the client needs around
// golang.org/x/oauth2: provider metadata discovery, token revocation, the
// state parameter that carries the pre-login destination, and decoding of
// ID token claims.
//
// # Core Components
//
//   - Client: metadata discovery (RFC 8414 and OIDC discovery) with a
//     de-duplicated, TTL-bound cache, and token revocation (RFC 7009)
//   - Metadata: provider metadata, convertible into an oauth2.Endpoint
//   - State: "<nonce>;<url-escaped destination>" encoding of the state
//     parameter
//   - IDTokenClaims: claims decoded from an ID token without signature
//     verification (the token is received directly from the token endpoint
//     over TLS)
//
// # Usage
//
//	client := oauth.NewClient(oauth.WithHTTPClient(httpClient))
//	metadata, err := client.DiscoverMetadata(ctx, "https://accounts.google.com")
//
//	cfg := &oauth2.Config{Endpoint: metadata.Endpoint(), ...}
//
//	state, err := oauth.NewState("/dashboard")
//	url := cfg.AuthCodeURL(state.Encode(), oauth2.S256ChallengeOption(verifier))
package oauth
