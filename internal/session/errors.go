package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPendingLogin is returned when a redirect arrives but no login
	// was started.
	ErrNoPendingLogin = errors.New("no login in progress")

	// ErrStateMismatch is returned when the redirect's state does not
	// match the pending login.
	ErrStateMismatch = errors.New("state parameter does not match the pending login")

	// ErrNoRefreshToken is returned by Renew when the session cannot be
	// renewed silently.
	ErrNoRefreshToken = errors.New("session has no refresh token")

	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// AuthInitError reports that discovery or the code exchange failed during
// session initialization. Callers log it and continue unauthenticated.
type AuthInitError struct {
	// Stage is one of "discovery", "authorize", "state", "exchange" or
	// "id_token".
	Stage string
	Err   error
}

func (e *AuthInitError) Error() string {
	return fmt.Sprintf("session initialization failed during %s: %v", e.Stage, e.Err)
}

func (e *AuthInitError) Unwrap() error {
	return e.Err
}

// RenewalError reports a failed silent renewal. The session stays as it was
// and becomes invalid when its tokens expire.
type RenewalError struct {
	Err error
}

func (e *RenewalError) Error() string {
	return fmt.Sprintf("silent renewal failed: %v", e.Err)
}

func (e *RenewalError) Unwrap() error {
	return e.Err
}
