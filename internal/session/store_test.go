package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	sess, pending, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, pending)

	want := &Session{
		Issuer:            "https://accounts.example.com",
		IDToken:           "id",
		AccessToken:       "access",
		RefreshToken:      "refresh",
		IDTokenExpiry:     testEpoch.Add(time.Hour),
		AccessTokenExpiry: testEpoch.Add(time.Hour),
		IssuedAt:          testEpoch,
		Claims:            map[string]any{"email": "player@example.com"},
	}
	require.NoError(t, store.SaveSession(want))
	require.NoError(t, store.SavePending(&PendingLogin{State: "n;upload", Destination: "upload", CreatedAt: testEpoch}))

	sess, pending, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, want.AccessToken, sess.AccessToken)
	assert.True(t, want.IDTokenExpiry.Equal(sess.IDTokenExpiry))
	assert.Equal(t, "player@example.com", sess.Claims["email"])
	require.NotNil(t, pending)
	assert.Equal(t, "upload", pending.Destination)

	require.NoError(t, store.SavePending(nil))
	sess, pending, err = store.Load()
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.Nil(t, pending)
}

func TestStore_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "auth")
	store, err := NewStore(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(&Session{IDToken: "id", AccessToken: "access"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore_Clear(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	// Clearing a missing file is not an error.
	require.NoError(t, store.Clear())

	require.NoError(t, store.SaveSession(&Session{IDToken: "id", AccessToken: "access"}))
	require.NoError(t, store.Clear())

	sess, _, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewStore(path)
	require.NoError(t, err)

	_, _, err = store.Load()
	assert.Error(t, err)

	// A write replaces the unreadable file.
	require.NoError(t, store.SaveSession(&Session{IDToken: "id", AccessToken: "access"}))
	sess, _, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "id", sess.IDToken)
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}
