package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"indiestream/internal/catalog"
	"indiestream/internal/cli"
	"indiestream/internal/config"
	"indiestream/internal/session"
	"indiestream/internal/testing/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	idp     *mock.IdentityProvider
	catalog *mock.CatalogServer
	dir     string
	logins  int
}

// newEnv writes a configuration directory pointing at an in-process
// identity provider and catalog API, and approves every login.
func newEnv(t *testing.T) *env {
	t.Helper()

	idp := mock.NewIdentityProvider(mock.IdentityProviderConfig{ClientID: "indiestream-cli"})
	t.Cleanup(idp.Close)
	srv := mock.NewCatalogServer(
		mock.CatalogGame{ID: "g-1", Title: "PixelQuest", Status: "installed", URL: "https://play.example.com/g-1"},
		mock.CatalogGame{ID: "g-2", Title: "TinyRacer", Status: "installed"},
	)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	runtimeFile := filepath.Join(dir, "app.config.json")
	require.NoError(t, os.WriteFile(runtimeFile, []byte(fmt.Sprintf(`{"apiUrl": %q}`, srv.URL())), 0o600))

	settings := config.GetDefaultSettings()
	settings.ConfigURL = runtimeFile
	settings.Auth.Issuer = idp.Issuer()
	settings.Auth.ClientID = "indiestream-cli"
	settings.Auth.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", freePort(t))
	settings.Auth.SessionFile = filepath.Join(dir, "session.json")
	settings.Catalog.PollInterval = 10 * time.Millisecond
	require.NoError(t, config.SaveSettings(dir, settings))

	e := &env{idp: idp, catalog: srv, dir: dir}
	loginNavigator = session.NavigatorFunc(func(_ context.Context, authURL string) error {
		e.logins++
		go func() {
			redirect, err := idp.Authorize(authURL)
			if err != nil {
				return
			}
			if resp, err := http.Get(redirect.String()); err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})
	t.Cleanup(func() { loginNavigator = nil })
	return e
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// run executes the root command with args and returns stdout.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config-dir", e.dir}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags clears flag values left over from a previous run.
func resetFlags() {
	debugFlag = false
	configDir = ""
	noBrowser = false
	authQuiet = false
	loginForce = false
	gamesOutput = cli.OutputFlags{Format: string(cli.OutputFormatTable)}
	listWait = false
	uploadTitle = ""
	uploadWait = false
}

func TestAuth_WhoamiWithoutSession(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "auth", "whoami")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))

	out, err := e.run(t, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
	assert.Zero(t, e.logins)
}

func TestAuth_Lifecycle(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Player One <player@example.com>")
	assert.Equal(t, 1, e.logins)

	out, err = e.run(t, "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Already signed in")
	assert.Equal(t, 1, e.logins, "a valid stored session is reused")

	out, err = e.run(t, "auth", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Player One <player@example.com>\n", out)

	out, err = e.run(t, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated")
	assert.Contains(t, out, filepath.Join(e.dir, "session.json"))

	out, err = e.run(t, "auth", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Session renewed")

	out, err = e.run(t, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	assert.NotEmpty(t, e.idp.Revoked())

	_, err = e.run(t, "auth", "whoami")
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
}

func TestAuth_LoginFailure(t *testing.T) {
	e := newEnv(t)
	loginNavigator = session.NavigatorFunc(func(context.Context, string) error {
		return errors.New("no browser available")
	})

	_, err := e.run(t, "auth", "login")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
}

func TestGames_ListStartsLoginAndContinues(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "games", "list", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, 1, e.logins)

	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "g-1", entries[0].ID)
	assert.Equal(t, catalog.StatusReady, entries[0].Status)

	for _, r := range e.catalog.Requests() {
		assert.NotEmpty(t, r.Authorization, "%s %s", r.Method, r.Path)
	}
}

func TestGames_ListDeniedWithoutLogin(t *testing.T) {
	e := newEnv(t)
	loginNavigator = session.NavigatorFunc(func(context.Context, string) error {
		return errors.New("canceled")
	})

	_, err := e.run(t, "games", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))
	assert.Empty(t, e.catalog.Requests())
}

func TestGames_ListTemplateAndInvalidFormat(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "games", "list", "-o", "template", "--template", `{{range .}}{{.ID}},{{end}}`)
	require.NoError(t, err)
	assert.Equal(t, "g-1,g-2,\n", out)

	_, err = e.run(t, "games", "list", "-o", "xml")
	assert.Error(t, err)
}

func TestGames_GetAndDelete(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "games", "get", "g-1")
	require.NoError(t, err)
	assert.Contains(t, out, "PixelQuest")

	_, err = e.run(t, "games", "get", "g-404")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	out, err = e.run(t, "games", "delete", "g-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted g-2")
	assert.Len(t, e.catalog.Games(), 1)
}

func TestGames_Upload(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()

	rom := filepath.Join(dir, "myrom.gba")
	require.NoError(t, os.WriteFile(rom, []byte("rom-bytes"), 0o600))

	out, err := e.run(t, "games", "upload", "--title", "MyGame", rom)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded MyGame as")
	uploads := e.catalog.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "myrom.gba", uploads[0].Filename)
	assert.Equal(t, []byte("rom-bytes"), uploads[0].Data)
}

func TestGames_UploadRejected(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()

	exe := filepath.Join(dir, "myrom.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o600))

	_, err := e.run(t, "games", "upload", "--title", "MyGame", exe)
	require.Error(t, err)
	assert.Equal(t, ExitCodeValidation, getExitCode(err))
	assert.Empty(t, e.catalog.Uploads())
}

func TestConfigError(t *testing.T) {
	e := newEnv(t)
	settings, err := config.LoadSettings(e.dir)
	require.NoError(t, err)
	settings.ConfigURL = filepath.Join(e.dir, "missing.json")
	require.NoError(t, config.SaveSettings(e.dir, settings))

	_, err = e.run(t, "auth", "status")
	assert.ErrorIs(t, err, &config.ConfigLoadError{})
	assert.Equal(t, ExitCodeError, getExitCode(err))
}
