package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"indiestream/pkg/logging"
	"indiestream/pkg/oauth"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// pendingLoginTTL bounds how long a started login can be completed.
const pendingLoginTTL = 10 * time.Minute

// Config describes the OAuth client.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Credential selects the bearer credential. Defaults to the ID token.
	Credential CredentialKind

	// RenewalFactor is the fraction of the access token lifetime after
	// which silent renewal runs. Defaults to 0.75.
	RenewalFactor float64
}

// Clock abstracts time for expiry checks and the renewal timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Manager owns the authorization-code session.
type Manager struct {
	cfg        Config
	provider   *oauth.Client
	httpClient *http.Client
	navigator  Navigator
	store      *Store
	clock      Clock

	mu          sync.RWMutex
	session     *Session
	pending     *PendingLogin
	stopRenewal func() bool

	renewGroup singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithNavigator sets how the user agent is sent to the provider.
func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

// WithStore enables persistence.
func WithStore(s *Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithClock overrides the clock.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithHTTPClient sets the client used for provider requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// NewManager creates a Manager. The session starts empty; call
// InitializeSession to discover the provider and restore state.
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.Credential == "" {
		cfg.Credential = CredentialIDToken
	}
	if cfg.RenewalFactor <= 0 || cfg.RenewalFactor >= 1 {
		cfg.RenewalFactor = 0.75
	}

	m := &Manager{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: oauth.DefaultHTTPTimeout},
		navigator:  BrowserNavigator{},
		clock:      realClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.provider = oauth.NewClient(oauth.WithHTTPClient(m.httpClient), oauth.WithNow(m.clock.Now))
	return m
}

// Issuer returns the configured issuer.
func (m *Manager) Issuer() string {
	return m.cfg.Issuer
}

// Login starts the authorization-code flow. It records a pending login
// whose state carries destination and hands the authorization URL to the
// navigator. The session is completed by InitializeSession once the
// provider redirects back.
func (m *Manager) Login(ctx context.Context, destination string) error {
	md, err := m.discover(ctx)
	if err != nil {
		return err
	}

	state, err := oauth.NewState(destination)
	if err != nil {
		return err
	}
	pending := &PendingLogin{
		State:       state.Encode(),
		Nonce:       state.Nonce,
		Verifier:    oauth2.GenerateVerifier(),
		Destination: destination,
		CreatedAt:   m.clock.Now(),
	}

	m.mu.Lock()
	m.pending = pending
	m.mu.Unlock()
	if m.store != nil {
		if err := m.store.SavePending(pending); err != nil {
			logging.Warn("Session", "Pending login not persisted: %v", err)
		}
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("nonce", pending.Nonce),
	}
	if md.SupportsPKCE() {
		opts = append(opts, oauth2.S256ChallengeOption(pending.Verifier))
	}
	authURL := m.oauth2Config(md).AuthCodeURL(pending.State, opts...)

	logging.Audit(logging.AuditEvent{Action: "login_started", Outcome: "success", Target: md.Issuer})
	return m.navigator.Navigate(ctx, authURL)
}

// InitializeSession discovers the provider, restores a stored session,
// completes a pending code exchange when redirect is non-nil, and arms
// silent renewal. When a valid session exists afterwards and a login was
// completed, the pre-login destination is returned.
//
// Failures are returned as *AuthInitError; the session then stays
// unauthenticated.
func (m *Manager) InitializeSession(ctx context.Context, redirect *Redirect) (string, error) {
	md, err := m.discover(ctx)
	if err != nil {
		return "", &AuthInitError{Stage: "discovery", Err: err}
	}

	m.restore()

	var destination string
	if redirect != nil {
		destination, err = m.completeLogin(ctx, md, redirect)
		if err != nil {
			logging.Audit(logging.AuditEvent{
				Action:  "code_exchange",
				Outcome: "failure",
				Target:  md.Issuer,
				Error:   err.Error(),
			})
			return "", err
		}
	} else if m.needsRenewal() {
		if err := m.Renew(ctx); err != nil {
			logging.Warn("Session", "Stored session could not be renewed: %v", err)
		}
	}

	m.armRenewal()

	if !m.IsAuthenticated() {
		return "", nil
	}
	return destination, nil
}

func (m *Manager) completeLogin(ctx context.Context, md *oauth.Metadata, redirect *Redirect) (string, error) {
	if redirect.IsError() {
		return "", &AuthInitError{
			Stage: "authorize",
			Err:   fmt.Errorf("%s: %s", redirect.Error, redirect.ErrorDescription),
		}
	}

	pending := m.takePending()
	if pending == nil {
		return "", &AuthInitError{Stage: "state", Err: ErrNoPendingLogin}
	}
	if redirect.State != pending.State {
		return "", &AuthInitError{Stage: "state", Err: ErrStateMismatch}
	}
	decoded, err := oauth.DecodeState(redirect.State)
	if err != nil {
		return "", &AuthInitError{Stage: "state", Err: err}
	}

	tok, err := m.oauth2Config(md).Exchange(m.oauth2Context(ctx), redirect.Code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		return "", &AuthInitError{Stage: "exchange", Err: err}
	}

	sess, err := m.sessionFromToken(md, tok, nil, pending.Nonce)
	if err != nil {
		return "", &AuthInitError{Stage: "id_token", Err: err}
	}
	m.publish(sess)

	logging.Audit(logging.AuditEvent{
		Action:  "code_exchange",
		Outcome: "success",
		Subject: logging.TruncateID(sess.Subject()),
		Target:  md.Issuer,
	})
	return decoded.Destination, nil
}

// IsAuthenticated reports whether both tokens exist and are unexpired now.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	return sess.ValidAt(m.clock.Now())
}

// Credential returns the bearer credential, or false when the session is
// not valid.
func (m *Manager) Credential() (string, bool) {
	sess, ok := m.validSession()
	if !ok {
		return "", false
	}
	if m.cfg.Credential == CredentialAccessToken {
		return sess.AccessToken, true
	}
	return sess.IDToken, true
}

// IdentityClaim returns an ID token claim, or false when unauthenticated or
// when the claim is missing.
func (m *Manager) IdentityClaim(name string) (any, bool) {
	sess, ok := m.validSession()
	if !ok {
		return nil, false
	}
	v, ok := sess.Claims[name]
	return v, ok
}

// Name returns the "name" claim or "".
func (m *Manager) Name() string {
	return m.stringClaim("name")
}

// Email returns the "email" claim or "".
func (m *Manager) Email() string {
	return m.stringClaim("email")
}

// PictureURL returns the "picture" claim or "".
func (m *Manager) PictureURL() string {
	return m.stringClaim("picture")
}

func (m *Manager) stringClaim(name string) string {
	v, _ := m.IdentityClaim(name)
	s, _ := v.(string)
	return s
}

// Snapshot returns a copy of the current session, valid or not.
func (m *Manager) Snapshot() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Logout clears the local session and revokes the access token with the
// provider. Local state is cleared even when revocation fails; the
// revocation error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.pending = nil
	if m.stopRenewal != nil {
		m.stopRenewal()
		m.stopRenewal = nil
	}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			logging.Warn("Session", "Failed to remove stored session: %v", err)
		}
	}

	if sess == nil || sess.AccessToken == "" {
		return nil
	}

	err := m.revoke(ctx, sess.AccessToken)
	outcome := "success"
	errText := ""
	if err != nil {
		outcome = "failure"
		errText = err.Error()
		logging.Warn("Session", "Token revocation failed: %v", err)
	}
	logging.Audit(logging.AuditEvent{
		Action:  "logout",
		Outcome: outcome,
		Subject: logging.TruncateID(sess.Subject()),
		Target:  sess.Issuer,
		Error:   errText,
	})
	return err
}

func (m *Manager) revoke(ctx context.Context, token string) error {
	md, err := m.discover(ctx)
	if err != nil {
		return err
	}
	return m.provider.RevokeToken(ctx, md.RevocationEndpoint, token, "access_token", m.cfg.ClientID)
}

func (m *Manager) validSession() (*Session, bool) {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if !sess.ValidAt(m.clock.Now()) {
		return nil, false
	}
	return sess, true
}

// discover returns the provider metadata, fetching it on first use.
func (m *Manager) discover(ctx context.Context) (*oauth.Metadata, error) {
	return m.provider.DiscoverMetadata(ctx, m.cfg.Issuer)
}

func (m *Manager) oauth2Config(md *oauth.Metadata) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.cfg.ClientID,
		ClientSecret: m.cfg.ClientSecret,
		RedirectURL:  m.cfg.RedirectURL,
		Scopes:       m.cfg.Scopes,
		Endpoint:     md.Endpoint(),
	}
}

func (m *Manager) oauth2Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// sessionFromToken builds a session from a token response. prev supplies
// the ID token and refresh token when a refresh response omits them.
func (m *Manager) sessionFromToken(md *oauth.Metadata, tok *oauth2.Token, prev *Session, nonce string) (*Session, error) {
	now := m.clock.Now()
	sess := &Session{
		Issuer:       md.Issuer,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		IssuedAt:     now,
	}
	if lifetime := tokenLifetime(tok); lifetime > 0 {
		sess.AccessTokenExpiry = now.Add(lifetime)
	} else {
		sess.AccessTokenExpiry = tok.Expiry
	}
	if sess.RefreshToken == "" && prev != nil {
		sess.RefreshToken = prev.RefreshToken
	}

	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		if prev == nil {
			return nil, errors.New("token response does not contain an id_token")
		}
		sess.IDToken = prev.IDToken
		sess.IDTokenExpiry = prev.IDTokenExpiry
		sess.Claims = prev.Claims
		return sess, nil
	}

	claims, all, err := oauth.ParseIDToken(rawID)
	if err != nil {
		return nil, err
	}
	if err := claims.ValidateFor(md.Issuer, m.cfg.ClientID); err != nil {
		return nil, err
	}
	if nonce != "" && claims.Nonce != "" && claims.Nonce != nonce {
		return nil, errors.New("ID token nonce does not match the login request")
	}
	sess.IDToken = rawID
	sess.IDTokenExpiry = claims.Expiry()
	sess.Claims = all
	return sess, nil
}

// publish replaces the session and persists it.
func (m *Manager) publish(sess *Session) {
	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveSession(sess); err != nil {
			logging.Warn("Session", "Session not persisted: %v", err)
		}
	}
}

// restore loads the stored session and pending login if nothing is held in
// memory yet.
func (m *Manager) restore() {
	if m.store == nil {
		return
	}
	stored, pending, err := m.store.Load()
	if err != nil {
		logging.Warn("Session", "Ignoring stored session: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil && stored != nil {
		m.session = stored
		logging.Debug("Session", "Restored session issued at %s", stored.IssuedAt.Format(time.RFC3339))
	}
	if m.pending == nil && pending != nil && m.clock.Now().Sub(pending.CreatedAt) < pendingLoginTTL {
		m.pending = pending
	}
}

func (m *Manager) takePending() *PendingLogin {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	if m.store != nil && pending != nil {
		if err := m.store.SavePending(nil); err != nil {
			logging.Warn("Session", "Failed to clear pending login: %v", err)
		}
	}
	return pending
}
