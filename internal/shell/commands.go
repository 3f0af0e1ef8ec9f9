package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"indiestream/internal/catalog"
	"indiestream/internal/cli"
	"indiestream/internal/gateway"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func (s *Shell) registerCommands() {
	s.registry.register(&command{
		name:        "help",
		usage:       "help",
		description: "Show available commands",
		run:         s.help,
	})
	s.registry.register(&command{
		name:        "routes",
		usage:       "routes",
		description: "List the pages you can navigate to",
		run:         s.routes,
	})
	s.registry.register(&command{
		name:        "go",
		usage:       "go <route>",
		description: "Navigate to a page (landing, dashboard, upload, account)",
		aliases:     []string{"cd", "open"},
		complete:    s.routeNames,
		run:         s.navigate,
	})
	s.registry.register(&command{
		name:        "games",
		usage:       "games",
		description: "Fetch and list your games",
		aliases:     []string{"ls", "list"},
		run:         s.games,
	})
	s.registry.register(&command{
		name:        "show",
		usage:       "show <id>",
		description: "Show a cached game",
		complete:    s.entryIDs,
		run:         s.show,
	})
	s.registry.register(&command{
		name:        "refresh",
		usage:       "refresh <id>",
		description: "Re-fetch one game",
		complete:    s.entryIDs,
		run:         s.refresh,
	})
	s.registry.register(&command{
		name:        "delete",
		usage:       "delete <id>",
		description: "Delete a game",
		aliases:     []string{"rm"},
		complete:    s.entryIDs,
		run:         s.delete,
	})
	s.registry.register(&command{
		name:        "upload",
		usage:       "upload <file> <title>",
		description: "Upload a ROM file",
		run:         s.upload,
	})
	s.registry.register(&command{
		name:        "whoami",
		usage:       "whoami",
		description: "Show the signed-in account",
		run:         s.whoami,
	})
	s.registry.register(&command{
		name:        "logout",
		usage:       "logout",
		description: "End the session",
		run:         s.logout,
	})
	s.registry.register(&command{
		name:        "exit",
		usage:       "exit",
		description: "Leave the shell",
		aliases:     []string{"quit", "q"},
		run:         func(context.Context, []string) error { return errExit },
	})
}

func (s *Shell) help(context.Context, []string) error {
	t := cli.NewTable(s.out, true)
	t.AppendHeader(table.Row{"COMMAND", "DESCRIPTION", "ALIASES"})
	for _, cmd := range s.registry.list() {
		t.AppendRow(table.Row{cmd.usage, cmd.description, strings.Join(cmd.aliases, ", ")})
	}
	t.Render()
	return nil
}

func (s *Shell) routes(context.Context, []string) error {
	current := s.Current().Path
	t := cli.NewTable(s.out, true)
	t.AppendHeader(table.Row{"", "ROUTE", "DESCRIPTION", "LOGIN"})
	for _, r := range s.deps.Router.Routes() {
		marker := ""
		if r.Path == current {
			marker = text.FgGreen.Sprint("*")
		}
		login := ""
		if r.Protected {
			login = "required"
		}
		t.AppendRow(table.Row{marker, routeLabel(r.Path), r.Description, login})
	}
	t.Render()
	return nil
}

func (s *Shell) routeNames() []string {
	var names []string
	for _, r := range s.deps.Router.Routes() {
		names = append(names, routeLabel(r.Path))
	}
	return names
}

func (s *Shell) entryIDs() []string {
	var ids []string
	for _, e := range s.deps.Catalog.Snapshot() {
		ids = append(ids, e.ID)
	}
	return ids
}

// enter navigates to path through the router. A denied protected route
// has run the login flow; if that produced a session the navigation is
// retried once so the user lands on the page they asked for.
func (s *Shell) enter(ctx context.Context, path string) (gateway.Route, error) {
	route, ok := s.deps.Router.Navigate(ctx, path)
	if !ok && s.deps.Account.IsAuthenticated() {
		route, ok = s.deps.Router.Navigate(ctx, path)
	}
	if !ok {
		return route, &cli.AuthRequiredError{Route: routeLabel(route.Path)}
	}
	s.setCurrent(route)
	return route, nil
}

func (s *Shell) navigate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: go <route>")
	}
	path := args[0]
	if strings.EqualFold(path, "landing") {
		path = gateway.RouteLanding
	}
	route, err := s.enter(ctx, path)
	if err != nil {
		return err
	}

	switch route.Path {
	case gateway.RouteDashboard:
		return s.listGames(ctx)
	case gateway.RouteUpload:
		fmt.Fprintln(s.out, "Upload a game with: upload <file> <title>")
		return nil
	case gateway.RouteAccount:
		s.printAccount()
		return nil
	default:
		fmt.Fprintln(s.out, "Welcome to IndieGameStream. Try 'go dashboard' to see your games.")
		return nil
	}
}

func (s *Shell) games(ctx context.Context, _ []string) error {
	if _, err := s.enter(ctx, gateway.RouteDashboard); err != nil {
		return err
	}
	return s.listGames(ctx)
}

func (s *Shell) listGames(ctx context.Context) error {
	if err := s.deps.Catalog.ListEntries(ctx); err != nil {
		// The cached list stays usable.
		fmt.Fprintf(s.out, "%s %v\n", text.FgYellow.Sprint("Could not refresh games:"), err)
	}
	p := &cli.Printer{Format: cli.OutputFormatTable, Out: s.out}
	return p.PrintEntries(s.deps.Catalog.Snapshot())
}

func (s *Shell) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <id>")
	}
	if _, err := s.enter(ctx, gateway.RouteDashboard); err != nil {
		return err
	}
	entry, ok := s.deps.Catalog.Entry(args[0])
	if !ok {
		return fmt.Errorf("game %s is not in the list; run 'games' first", args[0])
	}
	p := &cli.Printer{Format: cli.OutputFormatTable, Out: s.out}
	return p.PrintEntry(entry)
}

func (s *Shell) refresh(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: refresh <id>")
	}
	if _, err := s.enter(ctx, gateway.RouteDashboard); err != nil {
		return err
	}
	if err := s.deps.Catalog.RefreshEntry(ctx, args[0]); err != nil {
		return err
	}
	return s.show(ctx, args)
}

func (s *Shell) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	if _, err := s.enter(ctx, gateway.RouteDashboard); err != nil {
		return err
	}
	if err := s.deps.Catalog.DeleteEntry(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s Deleted %s\n", text.FgGreen.Sprint("✓"), args[0])
	return nil
}

func (s *Shell) upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: upload <file> <title>")
	}
	if _, err := s.enter(ctx, gateway.RouteUpload); err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	req := catalog.UploadRequest{
		Title:    args[1],
		Filename: filepath.Base(path),
		File:     data,
	}

	up, err := s.deps.Catalog.UploadEntry(ctx, req)
	if err != nil {
		return err
	}
	bar := cli.NewProgressBar(s.out, "Uploading "+req.Filename)
	if err := bar.Watch(up.Progress(), up.Wait); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s Uploaded %s as %s\n", text.FgGreen.Sprint("✓"), req.Title, up.EntryID())
	return nil
}

func (s *Shell) whoami(ctx context.Context, _ []string) error {
	if _, err := s.enter(ctx, gateway.RouteAccount); err != nil {
		return err
	}
	s.printAccount()
	return nil
}

func (s *Shell) printAccount() {
	sess, _ := s.deps.Account.Snapshot()
	cli.PrintSession(s.out, cli.SessionInfo{
		Authenticated: s.deps.Account.IsAuthenticated(),
		Issuer:        sess.Issuer,
		Subject:       sess.Subject(),
		Name:          s.deps.Account.Name(),
		Email:         s.deps.Account.Email(),
		Expiry:        sess.Expiry(),
		CanRenew:      sess.RefreshToken != "",
	}, s.deps.Now())
}

func (s *Shell) logout(ctx context.Context, _ []string) error {
	err := s.deps.Account.Logout(ctx)
	s.setCurrent(s.deps.Router.Resolve(gateway.RouteLanding))
	if err != nil {
		fmt.Fprintf(s.out, "%s Signed out locally; revoking the token failed: %v\n", text.FgYellow.Sprint("!"), err)
		return nil
	}
	fmt.Fprintf(s.out, "%s Signed out\n", text.FgGreen.Sprint("✓"))
	return nil
}

func routeLabel(path string) string {
	if path == gateway.RouteLanding {
		return "landing"
	}
	return path
}
