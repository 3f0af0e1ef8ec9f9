package session

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Navigator sends the user agent to the provider's authorization URL.
type Navigator interface {
	Navigate(ctx context.Context, authURL string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, authURL string) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, authURL string) error {
	return f(ctx, authURL)
}

// BrowserNavigator opens the system browser. The URL is also printed to
// Out so the user can open it manually when no browser is available.
type BrowserNavigator struct {
	Out       io.Writer
	NoBrowser bool
}

// Navigate implements Navigator.
func (b BrowserNavigator) Navigate(ctx context.Context, authURL string) error {
	if b.Out != nil {
		fmt.Fprintf(b.Out, "Open the following URL to sign in:\n\n  %s\n\n", authURL)
	}
	if b.NoBrowser {
		return nil
	}
	if err := OpenBrowser(authURL); err != nil {
		if b.Out != nil {
			fmt.Fprintf(b.Out, "Could not open a browser automatically: %v\n", err)
			return nil
		}
		return err
	}
	return nil
}

// OpenBrowser opens the specified URL in the default web browser.
// It supports Linux, macOS, and Windows.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	// The browser keeps running after the command returns.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()

	return nil
}
