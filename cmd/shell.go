package cmd

import (
	"indiestream/internal/shell"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive console",
	Long: `Start an interactive console that navigates IndieGameStream the way
the web client does. Protected pages (dashboard, upload, account) pass
through the sign-in flow when there is no session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Start(cmd.Context()); err != nil {
			return err
		}
		return shell.New(shell.Deps{
			Router:  a.Router,
			Catalog: a.Engine,
			Account: a.Session,
			Out:     cmd.OutOrStdout(),
		}).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
