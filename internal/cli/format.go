package cli

import (
	"fmt"
	"time"

	"indiestream/internal/catalog"

	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatStatus colors a catalog status.
func FormatStatus(s catalog.Status) string {
	switch s {
	case catalog.StatusReady:
		return text.FgGreen.Sprint(string(s))
	case catalog.StatusFailed:
		return text.FgRed.Sprint(string(s))
	case catalog.StatusProcessing:
		return text.FgYellow.Sprint(string(s))
	default:
		return text.FgHiBlack.Sprint(string(s))
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatExpiry formats expiresAt relative to now as "in X" or "expired X
// ago". A zero time has no expiry.
func FormatExpiry(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return "never"
	}
	remaining := expiresAt.Sub(now)
	if remaining > 0 {
		return "in " + FormatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", FormatDuration(-remaining))
}
