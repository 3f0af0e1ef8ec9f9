package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"indiestream/internal/testing/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Navigate(_ context.Context, authURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, authURL)
	return nil
}

func (n *recordingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

type fixture struct {
	idp   *mock.IdentityProvider
	clock *mock.MockClock
	nav   *recordingNavigator
	mgr   *Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := mock.NewMockClock(testEpoch)
	idp := mock.NewIdentityProvider(mock.IdentityProviderConfig{
		ClientID: "test-client",
		Clock:    clock,
	})
	t.Cleanup(idp.Close)

	nav := &recordingNavigator{}
	f := &fixture{idp: idp, clock: clock, nav: nav}
	f.mgr = f.newManager(opts...)
	return f
}

func (f *fixture) newManager(opts ...Option) *Manager {
	base := []Option{
		WithNavigator(f.nav),
		WithClock(f.clock),
		WithHTTPClient(f.idp.Client()),
	}
	return NewManager(Config{
		Issuer:      f.idp.Issuer(),
		ClientID:    "test-client",
		RedirectURL: "http://localhost:3000/callback",
		Scopes:      []string{"openid", "profile", "email"},
	}, append(base, opts...)...)
}

func (f *fixture) login(t *testing.T, m *Manager, destination string) string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, destination))
	redirect, err := f.idp.Authorize(f.nav.last())
	require.NoError(t, err)

	got, err := m.InitializeSession(ctx, ParseRedirect(redirect))
	require.NoError(t, err)
	return got
}

func TestManager_LoginRoundTrip(t *testing.T) {
	f := newFixture(t)
	defer f.mgr.Close()

	assert.False(t, f.mgr.IsAuthenticated())

	destination := f.login(t, f.mgr, "dashboard")
	assert.Equal(t, "dashboard", destination)
	assert.True(t, f.mgr.IsAuthenticated())

	authorize := f.idp.LastAuthorizeRequest()
	assert.Equal(t, "S256", authorize.Get("code_challenge_method"))
	assert.NotEmpty(t, authorize.Get("nonce"))
	assert.Equal(t, "offline", authorize.Get("access_type"))
	assert.Equal(t, "openid profile email", authorize.Get("scope"))

	snapshot, ok := f.mgr.Snapshot()
	require.True(t, ok)

	credential, ok := f.mgr.Credential()
	require.True(t, ok)
	assert.Equal(t, snapshot.IDToken, credential)

	email, ok := f.mgr.IdentityClaim("email")
	require.True(t, ok)
	assert.Equal(t, "player@example.com", email)
	assert.Equal(t, "Player One", f.mgr.Name())
	assert.Equal(t, "", f.mgr.PictureURL())

	_, ok = f.mgr.IdentityClaim("missing")
	assert.False(t, ok)
}

func TestManager_AccessTokenCredential(t *testing.T) {
	f := newFixture(t)
	m := NewManager(Config{
		Issuer:      f.idp.Issuer(),
		ClientID:    "test-client",
		RedirectURL: "http://localhost:3000/callback",
		Credential:  CredentialAccessToken,
	}, WithNavigator(f.nav), WithClock(f.clock), WithHTTPClient(f.idp.Client()))
	defer m.Close()

	f.login(t, m, "")

	snapshot, _ := m.Snapshot()
	credential, ok := m.Credential()
	require.True(t, ok)
	assert.Equal(t, snapshot.AccessToken, credential)
}

func TestManager_UnauthenticatedAccessors(t *testing.T) {
	f := newFixture(t)

	_, ok := f.mgr.Credential()
	assert.False(t, ok)

	v, ok := f.mgr.IdentityClaim("email")
	assert.Nil(t, v)
	assert.False(t, ok)
	assert.Equal(t, "", f.mgr.Email())
}

func TestManager_ExpiryWithoutLogout(t *testing.T) {
	f := newFixture(t)
	defer f.mgr.Close()

	f.login(t, f.mgr, "")
	require.True(t, f.mgr.IsAuthenticated())

	// The renewal that fires on the way fails, so the session lapses.
	f.idp.FailTokenRequests(1)
	f.clock.Advance(61 * time.Minute)

	assert.False(t, f.mgr.IsAuthenticated())
	_, ok := f.mgr.Credential()
	assert.False(t, ok)

	// No logout was forced: the expired session is still held.
	_, held := f.mgr.Snapshot()
	assert.True(t, held)
	assert.Empty(t, f.idp.Revoked())
}

func TestManager_SilentRenewal(t *testing.T) {
	f := newFixture(t)
	defer f.mgr.Close()

	f.login(t, f.mgr, "")
	before, _ := f.mgr.Credential()
	require.Equal(t, 1, f.clock.PendingTimers())

	f.clock.Advance(44 * time.Minute)
	assert.Len(t, f.idp.TokenRequests(), 1, "renewal must not run before 75% of the lifetime")

	f.clock.Advance(2 * time.Minute)
	requests := f.idp.TokenRequests()
	require.Len(t, requests, 2)
	assert.Equal(t, "refresh_token", requests[1].Get("grant_type"))

	after, ok := f.mgr.Credential()
	require.True(t, ok)
	assert.NotEqual(t, before, after)

	// Past the original expiry, the renewed session is still valid.
	f.clock.Advance(30 * time.Minute)
	assert.True(t, f.mgr.IsAuthenticated())
}

func TestManager_RenewWithoutSession(t *testing.T) {
	f := newFixture(t)

	err := f.mgr.Renew(context.Background())
	var renewalErr *RenewalError
	require.True(t, errors.As(err, &renewalErr))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestManager_InitializeErrors(t *testing.T) {
	t.Run("discovery failure", func(t *testing.T) {
		f := newFixture(t)
		m := NewManager(Config{Issuer: f.idp.Issuer() + "/missing", ClientID: "test-client"},
			WithClock(f.clock), WithHTTPClient(f.idp.Client()))

		_, err := m.InitializeSession(context.Background(), nil)
		var initErr *AuthInitError
		require.True(t, errors.As(err, &initErr))
		assert.Equal(t, "discovery", initErr.Stage)
		assert.False(t, m.IsAuthenticated())
	})

	t.Run("provider error", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mgr.InitializeSession(context.Background(), &Redirect{Error: "access_denied"})
		var initErr *AuthInitError
		require.True(t, errors.As(err, &initErr))
		assert.Equal(t, "authorize", initErr.Stage)
	})

	t.Run("no pending login", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mgr.InitializeSession(context.Background(), &Redirect{Code: "abc", State: "x"})
		assert.ErrorIs(t, err, ErrNoPendingLogin)
	})

	t.Run("state mismatch", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.mgr.Login(context.Background(), "upload"))
		redirect, err := f.idp.Authorize(f.nav.last())
		require.NoError(t, err)

		r := ParseRedirect(redirect)
		r.State = "forged;upload"
		_, err = f.mgr.InitializeSession(context.Background(), r)
		assert.ErrorIs(t, err, ErrStateMismatch)
		assert.False(t, f.mgr.IsAuthenticated())
	})

	t.Run("exchange rejected", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.mgr.Login(context.Background(), "upload"))
		redirect, err := f.idp.Authorize(f.nav.last())
		require.NoError(t, err)

		f.idp.FailTokenRequests(1)
		_, err = f.mgr.InitializeSession(context.Background(), ParseRedirect(redirect))
		var initErr *AuthInitError
		require.True(t, errors.As(err, &initErr))
		assert.Equal(t, "exchange", initErr.Stage)
	})
}

func TestManager_Logout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "session.json"))
	require.NoError(t, err)

	f := newFixture(t, WithStore(store))
	f.login(t, f.mgr, "")
	snapshot, _ := f.mgr.Snapshot()

	require.NoError(t, f.mgr.Logout(context.Background()))

	assert.False(t, f.mgr.IsAuthenticated())
	assert.Equal(t, []string{snapshot.AccessToken}, f.idp.Revoked())
	assert.Equal(t, 0, f.clock.PendingTimers())
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_LogoutRevocationFailure(t *testing.T) {
	f := newFixture(t)
	f.login(t, f.mgr, "")
	f.idp.FailRevocation(true)

	err := f.mgr.Logout(context.Background())
	assert.Error(t, err)
	assert.False(t, f.mgr.IsAuthenticated())
	_, held := f.mgr.Snapshot()
	assert.False(t, held)
}

func TestManager_RestoreFromStore(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	f := newFixture(t, WithStore(store))
	f.login(t, f.mgr, "account")
	f.mgr.Close()

	second := f.newManager(WithStore(store))
	defer second.Close()

	destination, err := second.InitializeSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", destination)
	assert.True(t, second.IsAuthenticated())
	assert.Equal(t, "player@example.com", second.Email())
}

func TestManager_RestoreExpiredRenews(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	f := newFixture(t, WithStore(store))
	f.login(t, f.mgr, "")
	f.mgr.Close()

	f.clock.Advance(2 * time.Hour)

	second := f.newManager(WithStore(store))
	defer second.Close()
	_, err = second.InitializeSession(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, second.IsAuthenticated())
}

func TestManager_PendingLoginSurvivesRestart(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	f := newFixture(t, WithStore(store))
	require.NoError(t, f.mgr.Login(context.Background(), "upload"))
	redirect, err := f.idp.Authorize(f.nav.last())
	require.NoError(t, err)

	second := f.newManager(WithStore(store))
	defer second.Close()
	destination, err := second.InitializeSession(context.Background(), ParseRedirect(redirect))
	require.NoError(t, err)
	assert.Equal(t, "upload", destination)
}

func TestSession_ValidAt(t *testing.T) {
	now := testEpoch
	valid := &Session{
		IDToken:           "id",
		AccessToken:       "access",
		IDTokenExpiry:     now.Add(time.Hour),
		AccessTokenExpiry: now.Add(time.Minute),
	}
	assert.True(t, valid.ValidAt(now))
	assert.False(t, valid.ValidAt(now.Add(time.Minute)), "access token expiry is exclusive")
	assert.Equal(t, now.Add(time.Minute), valid.Expiry())

	noID := *valid
	noID.IDToken = ""
	assert.False(t, noID.ValidAt(now))

	var nilSession *Session
	assert.False(t, nilSession.ValidAt(now))
}
