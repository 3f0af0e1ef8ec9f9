package session

import (
	"context"
)

// CompleteLogin waits for the provider's redirect on cb and completes the
// session with it. It returns the pre-login destination.
func (m *Manager) CompleteLogin(ctx context.Context, cb *CallbackServer) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	redirect, err := cb.Wait(ctx)
	if err != nil {
		return "", &AuthInitError{Stage: "authorize", Err: err}
	}
	return m.InitializeSession(ctx, redirect)
}

// LoginAndWait runs a complete interactive login: it starts the callback
// listener, sends the user agent to the provider and waits for the
// redirect.
func (m *Manager) LoginAndWait(ctx context.Context, destination string) (string, error) {
	cb, err := NewCallbackServer(m.cfg.RedirectURL)
	if err != nil {
		return "", err
	}
	if err := cb.Start(ctx); err != nil {
		return "", err
	}
	defer cb.Stop()

	if err := m.Login(ctx, destination); err != nil {
		return "", err
	}
	return m.CompleteLogin(ctx, cb)
}
