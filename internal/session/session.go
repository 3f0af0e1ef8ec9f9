package session

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// CredentialKind selects which token Credential returns.
type CredentialKind string

const (
	CredentialIDToken     CredentialKind = "id_token"
	CredentialAccessToken CredentialKind = "access_token"
)

// Session is the authenticated state. Values are treated as immutable once
// published by the Manager; updates replace the whole value.
type Session struct {
	Issuer       string `json:"issuer"`
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`

	IDTokenExpiry     time.Time `json:"id_token_expiry"`
	AccessTokenExpiry time.Time `json:"access_token_expiry"`

	// IssuedAt is when the access token was obtained. Renewal is scheduled
	// relative to it.
	IssuedAt time.Time `json:"issued_at"`

	Claims map[string]any `json:"claims,omitempty"`
}

// ValidAt reports whether both tokens exist and are unexpired at now. A
// zero expiry means the provider did not bound the token's lifetime.
func (s *Session) ValidAt(now time.Time) bool {
	if s == nil || s.IDToken == "" || s.AccessToken == "" {
		return false
	}
	if !s.IDTokenExpiry.IsZero() && !now.Before(s.IDTokenExpiry) {
		return false
	}
	if !s.AccessTokenExpiry.IsZero() && !now.Before(s.AccessTokenExpiry) {
		return false
	}
	return true
}

// Expiry returns the earlier of the two token expiries.
func (s *Session) Expiry() time.Time {
	switch {
	case s.IDTokenExpiry.IsZero():
		return s.AccessTokenExpiry
	case s.AccessTokenExpiry.IsZero():
		return s.IDTokenExpiry
	case s.IDTokenExpiry.Before(s.AccessTokenExpiry):
		return s.IDTokenExpiry
	default:
		return s.AccessTokenExpiry
	}
}

// Subject returns the "sub" claim.
func (s *Session) Subject() string {
	sub, _ := s.Claims["sub"].(string)
	return sub
}

// PendingLogin is a login that was started and awaits the provider's
// redirect.
type PendingLogin struct {
	State       string    `json:"state"`
	Nonce       string    `json:"nonce"`
	Verifier    string    `json:"verifier"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}

// Redirect is what the provider sends back to the redirect URL.
type Redirect struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// IsError returns true if the provider reported an error.
func (r *Redirect) IsError() bool {
	return r.Error != ""
}

// ParseRedirect extracts the authorization response from a redirect URL.
func ParseRedirect(u *url.URL) *Redirect {
	q := u.Query()
	return &Redirect{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// tokenLifetime returns the expires_in of a token response, or zero.
func tokenLifetime(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return 0
}
