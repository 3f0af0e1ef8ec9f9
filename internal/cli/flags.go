package cli

import "github.com/spf13/cobra"

// OutputFlags holds the output flag values shared by the games commands.
type OutputFlags struct {
	// Format is table, wide, json, yaml or template.
	Format string
	// Template is the Go template used with --output template.
	Template string
	// NoHeaders suppresses the header row in table output.
	NoHeaders bool
}

// RegisterOutputFlags registers --output/-o, --template and --no-headers.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.Format, "output", "o", string(OutputFormatTable), "Output format (table, wide, json, yaml, template)")
	cmd.Flags().StringVar(&flags.Template, "template", "", "Go template for --output template (sprig functions available)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
}
