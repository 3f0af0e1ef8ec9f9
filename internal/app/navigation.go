package app

import (
	"context"

	"indiestream/internal/cli"
	"indiestream/internal/gateway"
	"indiestream/internal/session"
)

// interactiveLogin runs the whole login inside the guard: it listens for
// the redirect, sends the user to the provider and waits. The guard still
// denies the navigation that triggered it.
type interactiveLogin struct {
	*session.Manager
}

func (l interactiveLogin) Login(ctx context.Context, destination string) error {
	_, err := l.LoginAndWait(ctx, destination)
	return err
}

// Enter navigates to path. When the guard denies a protected route and
// the login it started succeeded, navigation continues to the route that
// was originally requested. Otherwise *cli.AuthRequiredError is returned.
func (a *Application) Enter(ctx context.Context, path string) (gateway.Route, error) {
	route, ok := a.Router.Navigate(ctx, path)
	if !ok && a.Session.IsAuthenticated() {
		route, ok = a.Router.Navigate(ctx, route.Path)
	}
	if !ok {
		return route, &cli.AuthRequiredError{Route: route.Path}
	}
	return route, nil
}
