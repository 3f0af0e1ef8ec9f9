package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionInfo is what the auth status views show.
type SessionInfo struct {
	Authenticated bool
	Issuer        string
	Subject       string
	Name          string
	Email         string
	Expiry        time.Time
	CanRenew      bool
	StoredAt      string
}

// PrintSession renders info as a key/value table.
func PrintSession(out io.Writer, info SessionInfo, now time.Time) {
	if !info.Authenticated && info.Subject == "" {
		fmt.Fprintf(out, "%s Not logged in\n", text.FgYellow.Sprint("!"))
		fmt.Fprintln(out, "\nTo authenticate, run:\n  indiestream auth login")
		return
	}

	status := text.FgGreen.Sprint("✓") + " Authenticated"
	if !info.Authenticated {
		status = text.FgYellow.Sprint("!") + " Session expired"
	}

	t := NewTable(out, true)
	t.AppendRows([]table.Row{
		{text.FgHiCyan.Sprint("Status"), status},
		{text.FgHiCyan.Sprint("Name"), orDash(info.Name)},
		{text.FgHiCyan.Sprint("Email"), orDash(info.Email)},
		{text.FgHiCyan.Sprint("Subject"), orDash(info.Subject)},
		{text.FgHiCyan.Sprint("Issuer"), orDash(info.Issuer)},
		{text.FgHiCyan.Sprint("Expires"), FormatExpiry(info.Expiry, now)},
		{text.FgHiCyan.Sprint("Renewal"), renewalText(info.CanRenew)},
	})
	if info.StoredAt != "" {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint("Stored at"), info.StoredAt})
	}
	t.Render()
}

func renewalText(ok bool) string {
	if ok {
		return "silent (refresh token held)"
	}
	return text.FgYellow.Sprint("login required at expiry")
}
