package cmd

import (
	"github.com/spf13/cobra"

	"indiestream/internal/app"
	"indiestream/internal/session"
)

// loginNavigator replaces the browser when set. Tests use it to approve
// logins without a user agent.
var loginNavigator session.Navigator

// noBrowser is shared by every command that may start a login.
var noBrowser bool

// newApplication assembles the application for a command.
func newApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg := app.NewConfig(debugFlag, configDir)
	cfg.NoBrowser = noBrowser
	cfg.Out = cmd.ErrOrStderr()
	cfg.Navigator = loginNavigator
	return app.NewApplication(cmd.Context(), cfg)
}
