package gateway

import (
	"context"
	"sort"
	"strings"
)

// Route names.
const (
	RouteLanding   = ""
	RouteDashboard = "dashboard"
	RouteUpload    = "upload"
	RouteAccount   = "account"
)

// Route is an entry of the route table.
type Route struct {
	Path        string
	Description string
	Protected   bool
}

var defaultRoutes = []Route{
	{Path: RouteLanding, Description: "Landing page"},
	{Path: RouteDashboard, Description: "Your uploaded games", Protected: true},
	{Path: RouteUpload, Description: "Upload a new game", Protected: true},
	{Path: RouteAccount, Description: "Account and session details", Protected: true},
}

// Router resolves paths against the route table and applies the guard to
// protected routes.
type Router struct {
	guard  *Guard
	routes map[string]Route
}

// NewRouter creates a Router with the application routes.
func NewRouter(guard *Guard) *Router {
	r := &Router{guard: guard, routes: make(map[string]Route, len(defaultRoutes))}
	for _, route := range defaultRoutes {
		r.routes[route.Path] = route
	}
	return r
}

// Resolve returns the route for path. Unknown paths resolve to the landing
// route.
func (r *Router) Resolve(path string) Route {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if route, ok := r.routes[strings.ToLower(path)]; ok {
		return route
	}
	return r.routes[RouteLanding]
}

// Navigate resolves path and reports whether the resulting route may be
// entered. A denied protected route has started the login flow.
func (r *Router) Navigate(ctx context.Context, path string) (Route, bool) {
	route := r.Resolve(path)
	if !route.Protected {
		return route, true
	}
	return route, r.guard.CanActivate(ctx, route.Path)
}

// Routes returns the route table ordered by path.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, route)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
