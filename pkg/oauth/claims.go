package oauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims holds the identity claims extracted from an ID token.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	// Email is the user's email address (email claim).
	Email string `json:"email,omitempty"`
	// Name is the user's display name (name claim).
	Name string `json:"name,omitempty"`
	// Picture is the profile picture URL (picture claim).
	Picture string `json:"picture,omitempty"`
	// Nonce is the OIDC nonce echoed by the provider.
	Nonce string `json:"nonce,omitempty"`
}

// ParseIDToken decodes the claims of an ID token without verifying its
// signature, and returns both the typed claims and the full claim map.
//
// The token must come straight from the provider's token endpoint; claims
// decoded this way are used for expiry tracking and display only.
func ParseIDToken(raw string) (*IDTokenClaims, map[string]any, error) {
	parser := jwt.NewParser()

	claims := &IDTokenClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, nil, fmt.Errorf("failed to decode ID token: %w", err)
	}

	all := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, all); err != nil {
		return nil, nil, fmt.Errorf("failed to decode ID token: %w", err)
	}

	return claims, all, nil
}

// Expiry returns the exp claim, or the zero time if absent.
func (c *IDTokenClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ValidateFor checks the issuer and audience claims against the expected
// values. Empty expectations are skipped.
func (c *IDTokenClaims) ValidateFor(issuer, clientID string) error {
	if issuer != "" && !sameIssuer(c.Issuer, issuer) {
		return fmt.Errorf("ID token issuer %q does not match %q", c.Issuer, issuer)
	}
	if clientID != "" {
		for _, aud := range c.Audience {
			if aud == clientID {
				return nil
			}
		}
		return fmt.Errorf("ID token audience does not include client %q", clientID)
	}
	return nil
}

// sameIssuer compares issuers ignoring a trailing slash and the scheme-less
// "accounts.google.com" form Google sometimes emits.
func sameIssuer(got, want string) bool {
	trim := func(s string) string {
		for len(s) > 0 && s[len(s)-1] == '/' {
			s = s[:len(s)-1]
		}
		return s
	}
	got, want = trim(got), trim(want)
	return got == want || "https://"+got == want
}
