// Package session owns the OpenID Connect authorization-code session of the
// indiestream CLI.
//
// # Architecture
//
// Manager is the single owner of the session state. It:
//
//   - discovers the provider endpoints (pkg/oauth, cached)
//   - starts a login by sending the user agent to the provider with a PKCE
//     challenge and a state parameter that carries the pre-login
//     destination (Login)
//   - completes the code exchange when the user agent returns, restores a
//     stored session, and arms silent renewal (InitializeSession)
//   - answers "am I authenticated and what is my credential" by checking
//     both token expiries against the clock on every call
//     (IsAuthenticated, Credential, IdentityClaim)
//   - revokes and clears the session (Logout)
//
// Silent renewal runs the refresh-token grant once RenewalFactor of the
// access token lifetime has elapsed. A failed renewal is logged and leaves
// the session to lapse on its own; nothing forces a logout.
//
// The session and any pending login are persisted in a 0600 JSON file so
// that separate CLI invocations share them. Long-running commands can
// follow changes made by other processes with WatchStore.
//
// # Usage
//
//	mgr := session.NewManager(session.Config{...},
//	    session.WithStore(store),
//	    session.WithNavigator(session.BrowserNavigator{Out: os.Stderr}),
//	)
//	if _, err := mgr.InitializeSession(ctx, nil); err != nil {
//	    logging.Warn("Session", "continuing unauthenticated: %v", err)
//	}
//	if token, ok := mgr.Credential(); ok { ... }
package session
