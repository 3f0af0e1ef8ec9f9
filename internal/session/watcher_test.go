package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WatchStore(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	f := newFixture(t, WithStore(store))
	defer f.mgr.Close()

	follower := f.newManager(WithStore(store))
	defer follower.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, follower.WatchStore(ctx))

	f.login(t, f.mgr, "")
	assert.Eventually(t, follower.IsAuthenticated, 3*time.Second, 20*time.Millisecond,
		"login in another process should be picked up")

	require.NoError(t, f.mgr.Logout(context.Background()))
	assert.Eventually(t, func() bool { return !follower.IsAuthenticated() }, 3*time.Second, 20*time.Millisecond,
		"logout in another process should be picked up")
}

func TestManager_WatchStoreWithoutStore(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.mgr.WatchStore(context.Background()))
}
