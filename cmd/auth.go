package cmd

import (
	"errors"
	"fmt"
	"time"

	"indiestream/internal/app"
	"indiestream/internal/cli"
	"indiestream/internal/session"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	authQuiet  bool
	loginForce bool
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your IndieGameStream session",
	Long: `Manage the session used by indiestream commands.

Examples:
  indiestream auth login               # Sign in with the browser
  indiestream auth login --no-browser  # Print the sign-in URL instead
  indiestream auth status              # Show session status
  indiestream auth whoami              # Show the signed-in account
  indiestream auth refresh             # Renew the session now
  indiestream auth logout              # Sign out and revoke the token`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to IndieGameStream",
	Long: `Sign in using the OAuth authorization-code flow.

A local listener receives the provider's redirect on the configured
redirectUrl. The session is stored in the configuration directory and
renewed silently while it is in use.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and revoke the access token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Long: `Show the signed-in account. Exits with code 2 when there is no
valid session.`,
	Args: cobra.NoArgs,
	RunE: runAuthWhoami,
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the session now",
	Args:  cobra.NoArgs,
	RunE:  runAuthRefresh,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd, authWhoamiCmd, authRefreshCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Sign in again even with a valid session")
}

// authPrint prints output only if the --quiet flag is not set.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Session.IsAuthenticated() && !loginForce {
		authPrint(cmd, "%s Already signed in as %s\n", text.FgGreen.Sprint("✓"), identity(a))
		return nil
	}

	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Waiting for sign-in to complete in the browser...", authQuiet || noBrowser)
	destination, err := a.Session.LoginAndWait(cmd.Context(), "")
	if err != nil {
		spin.Fail("Sign-in failed")
		return &cli.AuthFailedError{Reason: err}
	}
	spin.Stop("")

	authPrint(cmd, "%s Signed in as %s\n", text.FgGreen.Sprint("✓"), identity(a))
	if destination != "" {
		authPrint(cmd, "Continuing to %s\n", destination)
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Session.Logout(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Signed out locally, but the token could not be revoked: %v\n", text.FgYellow.Sprint("!"), err)
		return nil
	}
	authPrint(cmd, "%s Signed out\n", text.FgGreen.Sprint("✓"))
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cli.PrintSession(cmd.OutOrStdout(), sessionInfo(a), time.Now())
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Session.IsAuthenticated() {
		return &cli.AuthRequiredError{}
	}
	fmt.Fprintln(cmd.OutOrStdout(), identity(a))
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Session.Renew(cmd.Context()); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) || errors.Is(err, session.ErrNoRefreshToken) {
			return &cli.AuthRequiredError{}
		}
		return &cli.AuthFailedError{Reason: err}
	}

	sess, _ := a.Session.Snapshot()
	authPrint(cmd, "%s Session renewed, expires %s\n", text.FgGreen.Sprint("✓"), cli.FormatExpiry(sess.Expiry(), time.Now()))
	return nil
}

func identity(a *app.Application) string {
	name, email := a.Session.Name(), a.Session.Email()
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case email != "":
		return email
	case name != "":
		return name
	}
	sess, _ := a.Session.Snapshot()
	return sess.Subject()
}

func sessionInfo(a *app.Application) cli.SessionInfo {
	sess, _ := a.Session.Snapshot()
	return cli.SessionInfo{
		Authenticated: a.Session.IsAuthenticated(),
		Issuer:        sess.Issuer,
		Subject:       sess.Subject(),
		Name:          a.Session.Name(),
		Email:         a.Session.Email(),
		Expiry:        sess.Expiry(),
		CanRenew:      sess.RefreshToken != "",
		StoredAt:      a.Settings.Auth.SessionFile,
	}
}
