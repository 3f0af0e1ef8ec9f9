// Package cli holds the presentation helpers shared by the indiestream
// commands: output formats for catalog entries, user-facing errors with
// actionable guidance, duration and status formatting, and the spinner and
// progress bar used while waiting on the network.
//
// Output goes to the writer the command supplies. Logs go to stderr via
// pkg/logging, so stdout stays machine-readable for json, yaml and
// template output.
package cli
