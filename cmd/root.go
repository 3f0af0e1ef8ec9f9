package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"indiestream/internal/catalog"
	"indiestream/internal/cli"
	"indiestream/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates a session is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the login flow failed.
	ExitCodeAuthFailed = 3
	// ExitCodeValidation indicates an upload was rejected before sending.
	ExitCodeValidation = 4
)

// Global flags.
var (
	debugFlag bool
	configDir string
)

// rootCmd represents the base command for the indiestream application.
var rootCmd = &cobra.Command{
	Use:   "indiestream",
	Short: "Upload and manage your games on IndieGameStream",
	Long: `indiestream is the command line client for IndieGameStream.

Sign in with your Google account, upload game ROMs, and follow them
through processing until they are ready to stream.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is the common case.
		_ = godotenv.Load()

		level := logging.LevelWarn
		if debugFlag {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code derived from the
// error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "indiestream version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	var validation *catalog.ValidationError
	if errors.As(err, &validation) {
		return ExitCodeValidation
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.config/indiestream)")
	rootCmd.PersistentFlags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
