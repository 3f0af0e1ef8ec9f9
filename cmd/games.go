package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"indiestream/internal/app"
	"indiestream/internal/catalog"
	"indiestream/internal/cli"
	"indiestream/internal/gateway"
	strs "indiestream/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	gamesOutput cli.OutputFlags
	listWait    bool
	uploadTitle string
	uploadWait  bool
)

// gamesCmd represents the games command group
var gamesCmd = &cobra.Command{
	Use:     "games",
	Aliases: []string{"game"},
	Short:   "Manage your games",
	Long: `List, inspect, upload and delete your games.

Every games command requires a session. Without one, the sign-in flow
starts and the command continues once it completes.

Examples:
  indiestream games list
  indiestream games list -o json
  indiestream games list -o template --template '{{range .}}{{.ID}}{{"\n"}}{{end}}'
  indiestream games upload --title MyGame ./mygame.gba
  indiestream games watch`,
}

var gamesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your games",
	Args:    cobra.NoArgs,
	RunE:    runGamesList,
}

var gamesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one game",
	Args:  cobra.ExactArgs(1),
	RunE:  runGamesGet,
}

var gamesDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a game",
	Args:    cobra.ExactArgs(1),
	RunE:    runGamesDelete,
}

var gamesUploadCmd = &cobra.Command{
	Use:   "upload --title <title> <file>",
	Short: "Upload a game ROM",
	Long: `Upload a game ROM. The title and file are validated before anything
is sent; a rejected upload exits with code 4.`,
	Args: cobra.ExactArgs(1),
	RunE: runGamesUpload,
}

var gamesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow games until processing finishes",
	Args:  cobra.NoArgs,
	RunE:  runGamesWatch,
}

func init() {
	rootCmd.AddCommand(gamesCmd)
	gamesCmd.AddCommand(gamesListCmd, gamesGetCmd, gamesDeleteCmd, gamesUploadCmd, gamesWatchCmd)

	cli.RegisterOutputFlags(gamesListCmd, &gamesOutput)
	cli.RegisterOutputFlags(gamesGetCmd, &gamesOutput)
	gamesListCmd.Flags().BoolVar(&listWait, "wait", false, "Wait until every game has finished processing")
	gamesUploadCmd.Flags().StringVar(&uploadTitle, "title", "", "Title of the game")
	gamesUploadCmd.Flags().BoolVar(&uploadWait, "wait", false, "Wait until the game has finished processing")
	_ = gamesUploadCmd.MarkFlagRequired("title")
}

// enterGames assembles the application and passes the route guard for
// route.
func enterGames(cmd *cobra.Command, route string) (*app.Application, error) {
	a, err := newApplication(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := a.Enter(cmd.Context(), route); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func runGamesList(cmd *cobra.Command, args []string) error {
	printer, err := cli.NewPrinter(cmd.OutOrStdout(), gamesOutput)
	if err != nil {
		return err
	}
	a, err := enterGames(cmd, gateway.RouteDashboard)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if listWait {
		if err := a.Start(ctx); err != nil {
			return err
		}
	}
	if err := a.Engine.ListEntries(ctx); err != nil {
		return cli.FriendlyError(err, a.Runtime.APIURL)
	}
	if listWait {
		spin := cli.StartSpinner(cmd.ErrOrStderr(), "Waiting for games to finish processing...", false)
		err := waitReconciled(ctx, a.Engine)
		spin.Stop("")
		if err != nil {
			return err
		}
	}
	return printer.PrintEntries(a.Engine.Snapshot())
}

func runGamesGet(cmd *cobra.Command, args []string) error {
	printer, err := cli.NewPrinter(cmd.OutOrStdout(), gamesOutput)
	if err != nil {
		return err
	}
	a, err := enterGames(cmd, gateway.RouteDashboard)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	id := args[0]
	if err := a.Engine.ListEntries(ctx); err != nil {
		return cli.FriendlyError(err, a.Runtime.APIURL)
	}
	if _, ok := a.Engine.Entry(id); ok {
		if err := a.Engine.RefreshEntry(ctx, id); err != nil {
			return cli.FriendlyError(err, a.Runtime.APIURL)
		}
	}
	entry, ok := a.Engine.Entry(id)
	if !ok {
		return fmt.Errorf("game %s: %w", id, catalog.ErrNotFound)
	}
	return printer.PrintEntry(entry)
}

func runGamesDelete(cmd *cobra.Command, args []string) error {
	a, err := enterGames(cmd, gateway.RouteDashboard)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Engine.DeleteEntry(cmd.Context(), args[0]); err != nil {
		return cli.FriendlyError(err, a.Runtime.APIURL)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", text.FgGreen.Sprint("✓"), args[0])
	return nil
}

func runGamesUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	a, err := enterGames(cmd, gateway.RouteUpload)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	up, err := a.Engine.UploadEntry(ctx, catalog.UploadRequest{
		Title:    uploadTitle,
		Filename: filepath.Base(path),
		File:     data,
	})
	if err != nil {
		return err
	}

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), "Uploading "+filepath.Base(path))
	if err := bar.Watch(up.Progress(), up.Wait); err != nil {
		return cli.FriendlyError(err, a.Runtime.APIURL)
	}

	id := up.EntryID()
	fmt.Fprintf(cmd.OutOrStdout(), "%s Uploaded %s as %s\n", text.FgGreen.Sprint("✓"), uploadTitle, id)
	if !uploadWait || id == "" {
		return nil
	}

	if err := a.Start(ctx); err != nil {
		return err
	}
	if err := a.Engine.ListEntries(ctx); err != nil {
		return cli.FriendlyError(err, a.Runtime.APIURL)
	}
	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Processing...", false)
	err = waitReconciled(ctx, a.Engine)
	spin.Stop("")
	if err != nil {
		return err
	}
	if entry, ok := a.Engine.Entry(id); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", id, cli.FormatStatus(entry.Status))
	}
	return nil
}

func runGamesWatch(cmd *cobra.Command, args []string) error {
	a, err := enterGames(cmd, gateway.RouteDashboard)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.Start(ctx); err != nil {
		return err
	}
	if err := a.Engine.ListEntries(ctx); err != nil {
		return cli.FriendlyError(err, a.Runtime.APIURL)
	}

	out := cmd.OutOrStdout()
	seen := make(map[string]catalog.Status)
	report := func() {
		for _, e := range a.Engine.Snapshot() {
			if prev, ok := seen[e.ID]; !ok || prev != e.Status {
				fmt.Fprintf(out, "%s  %-24s %s\n", time.Now().Format(time.TimeOnly), strs.Truncate(e.Title, 24), cli.FormatStatus(e.Status))
				seen[e.ID] = e.Status
			}
		}
	}
	report()

	for a.Engine.Reconciling() > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-a.Engine.Updates():
			report()
		case <-time.After(time.Second):
		}
	}
	report()
	return nil
}

// waitReconciled blocks until the engine stops polling every entry.
func waitReconciled(ctx context.Context, engine *catalog.Engine) error {
	for engine.Reconciling() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-engine.Updates():
		case <-time.After(time.Second):
		}
	}
	return nil
}
