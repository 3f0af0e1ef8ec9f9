package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security relevant session event.
type AuditEvent struct {
	// Action is what happened, e.g. "code_exchange" or "logout".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// Subject identifies the user, typically a truncated "sub" claim.
	Subject string
	// Target is the issuer or endpoint involved.
	Target string
	// Error is set for failures.
	Error string
}

// Audit writes an audit event at INFO level.
func Audit(event AuditEvent) {
	l := logger()
	if l == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", event.Subject))
	}
	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	l.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

// TruncateID shortens an identifier for log correlation.
func TruncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
