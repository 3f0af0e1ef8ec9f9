// Package logging provides the subsystem logger used across indiestream.
//
// It is a thin layer over log/slog. Every entry carries a subsystem
// attribute so that session, gateway and catalog output can be told apart
// when several of them run in the same process (for example inside the
// interactive shell).
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Session", "Restored session for %s", email)
//	logging.Debug("Catalog", "Refreshing entry %s", id)
//	logging.Warn("Session", "Silent renewal failed: %v", err)
//	logging.Error("Catalog", err, "Failed to list entries")
//
// Log output goes to the writer given to InitForCLI. The CLI passes
// os.Stderr so that stdout stays reserved for command output that may be
// piped into other tools.
//
// # Audit Logging
//
// Security relevant session events (login, code exchange, renewal, logout)
// are written through Audit. Audit events are logged at INFO level with an
// [AUDIT] prefix. Token values must never be passed to Audit; use
// TruncateID for identifiers that are useful for correlation.
package logging
