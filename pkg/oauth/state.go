package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// nonceBytes is the number of random bytes for the state nonce.
// 32 bytes encodes to 43 base64url characters.
const nonceBytes = 32

// stateSeparator splits the nonce from the encoded destination.
const stateSeparator = ";"

// State is the value carried through the authorization redirect. The nonce
// protects against CSRF; Destination is the path the user wanted to reach
// before being sent to the provider.
type State struct {
	Nonce       string
	Destination string
}

// GenerateNonce returns a base64url-encoded random string.
func GenerateNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewState creates a state with a fresh nonce for destination.
func NewState(destination string) (*State, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}
	return &State{Nonce: nonce, Destination: destination}, nil
}

// Encode renders the state parameter. The destination is query-escaped so
// that the parameter is URL-decodable back to the original path.
func (s *State) Encode() string {
	if s.Destination == "" {
		return s.Nonce
	}
	return s.Nonce + stateSeparator + url.QueryEscape(s.Destination)
}

// DecodeState parses a state parameter produced by Encode.
func DecodeState(raw string) (*State, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty state parameter")
	}
	nonce, encoded, found := strings.Cut(raw, stateSeparator)
	if nonce == "" {
		return nil, fmt.Errorf("state parameter has no nonce")
	}
	s := &State{Nonce: nonce}
	if !found {
		return s, nil
	}
	destination, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid destination in state parameter: %w", err)
	}
	s.Destination = destination
	return s, nil
}
