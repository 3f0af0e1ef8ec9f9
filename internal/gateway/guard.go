package gateway

import (
	"context"

	"indiestream/pkg/logging"
)

// SessionState is the part of the session manager the guard depends on.
type SessionState interface {
	IsAuthenticated() bool
	Login(ctx context.Context, destination string) error
}

// Guard admits navigation to protected routes only with a valid session.
type Guard struct {
	session SessionState
}

// NewGuard creates a Guard over session.
func NewGuard(session SessionState) *Guard {
	return &Guard{session: session}
}

// CanActivate reports whether route may be entered. Without a valid
// session it starts the login flow with route as the destination and
// returns false. It never fails; login errors are logged.
func (g *Guard) CanActivate(ctx context.Context, route string) bool {
	if g.session.IsAuthenticated() {
		return true
	}

	logging.Info("Gateway", "Route %q requires authentication, starting login", route)
	if err := g.session.Login(ctx, route); err != nil {
		logging.Error("Gateway", err, "Failed to start login for route %q", route)
	}
	return false
}
