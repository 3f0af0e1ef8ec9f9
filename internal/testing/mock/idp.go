package mock

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// IdentityProviderConfig configures the fake identity provider.
type IdentityProviderConfig struct {
	ClientID string

	// TokenLifetime is how long access and ID tokens remain valid.
	TokenLifetime time.Duration

	// Subject, Email and Name populate the ID token.
	Subject string
	Email   string
	Name    string

	// Clock drives token issue times. Defaults to RealClock.
	Clock Clock
}

// IdentityProvider is an in-process OpenID Connect provider.
type IdentityProvider struct {
	server *httptest.Server
	config IdentityProviderConfig

	mu            sync.Mutex
	codes         map[string]*authCode
	refreshTokens map[string]bool
	revoked       []string
	tokenRequests []url.Values
	failTokens    int
	failRevoke    bool
	lastAuthorize url.Values
}

type authCode struct {
	redirectURI   string
	codeChallenge string
	nonce         string
}

// idpSigningKey signs ID tokens. The client decodes claims without
// verifying signatures, so the key only has to produce a well-formed JWT.
var idpSigningKey = []byte("indiestream-test-signing-key")

// NewIdentityProvider starts a provider. Call Close when done.
func NewIdentityProvider(config IdentityProviderConfig) *IdentityProvider {
	if config.ClientID == "" {
		config.ClientID = "test-client"
	}
	if config.TokenLifetime == 0 {
		config.TokenLifetime = time.Hour
	}
	if config.Subject == "" {
		config.Subject = "1234567890"
	}
	if config.Email == "" {
		config.Email = "player@example.com"
	}
	if config.Name == "" {
		config.Name = "Player One"
	}
	if config.Clock == nil {
		config.Clock = RealClock{}
	}

	p := &IdentityProvider{
		config:        config,
		codes:         make(map[string]*authCode),
		refreshTokens: make(map[string]bool),
	}

	r := mux.NewRouter()
	r.HandleFunc("/.well-known/openid-configuration", p.handleMetadata).Methods(http.MethodGet)
	r.HandleFunc("/authorize", p.handleAuthorize).Methods(http.MethodGet)
	r.HandleFunc("/token", p.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/revoke", p.handleRevoke).Methods(http.MethodPost)

	p.server = httptest.NewServer(r)
	return p
}

// Close shuts the provider down.
func (p *IdentityProvider) Close() {
	p.server.Close()
}

// Issuer returns the provider's issuer URL.
func (p *IdentityProvider) Issuer() string {
	return p.server.URL
}

// Client returns an HTTP client for the provider.
func (p *IdentityProvider) Client() *http.Client {
	return p.server.Client()
}

// FailTokenRequests makes the next n token requests fail with
// invalid_grant.
func (p *IdentityProvider) FailTokenRequests(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failTokens = n
}

// FailRevocation makes revocation requests fail.
func (p *IdentityProvider) FailRevocation(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failRevoke = fail
}

// Revoked returns the tokens revoked so far.
func (p *IdentityProvider) Revoked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revoked...)
}

// TokenRequests returns the form bodies of all token requests.
func (p *IdentityProvider) TokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.tokenRequests...)
}

// LastAuthorizeRequest returns the query of the most recent /authorize call.
func (p *IdentityProvider) LastAuthorizeRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuthorize
}

// Authorize plays the user agent: it requests authURL, approves the
// login and returns the redirect back to the client.
func (p *IdentityProvider) Authorize(authURL string) (*url.URL, error) {
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(authURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return nil, fmt.Errorf("authorize returned status %d", resp.StatusCode)
	}
	return url.Parse(resp.Header.Get("Location"))
}

func (p *IdentityProvider) handleMetadata(w http.ResponseWriter, r *http.Request) {
	issuer := p.Issuer()
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                           issuer,
		"authorization_endpoint":           issuer + "/authorize",
		"token_endpoint":                   issuer + "/token",
		"revocation_endpoint":              issuer + "/revoke",
		"response_types_supported":         []string{"code"},
		"code_challenge_methods_supported": []string{"S256"},
		"scopes_supported":                 []string{"openid", "profile", "email"},
	})
}

func (p *IdentityProvider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p.mu.Lock()
	p.lastAuthorize = q
	p.mu.Unlock()

	if q.Get("client_id") != p.config.ClientID {
		http.Error(w, "unknown client", http.StatusBadRequest)
		return
	}
	if q.Get("response_type") != "code" || q.Get("code_challenge_method") != "S256" {
		http.Error(w, "unsupported request", http.StatusBadRequest)
		return
	}

	code := uuid.NewString()
	p.mu.Lock()
	p.codes[code] = &authCode{
		redirectURI:   q.Get("redirect_uri"),
		codeChallenge: q.Get("code_challenge"),
		nonce:         q.Get("nonce"),
	}
	p.mu.Unlock()

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}
	rq := redirect.Query()
	rq.Set("code", code)
	rq.Set("state", q.Get("state"))
	redirect.RawQuery = rq.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (p *IdentityProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeTokenError(w, "invalid_request")
		return
	}

	p.mu.Lock()
	p.tokenRequests = append(p.tokenRequests, r.PostForm)
	if p.failTokens > 0 {
		p.failTokens--
		p.mu.Unlock()
		writeTokenError(w, "invalid_grant")
		return
	}
	p.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.exchangeCode(w, r.PostForm)
	case "refresh_token":
		p.refresh(w, r.PostForm)
	default:
		writeTokenError(w, "unsupported_grant_type")
	}
}

func (p *IdentityProvider) exchangeCode(w http.ResponseWriter, form url.Values) {
	p.mu.Lock()
	entry, ok := p.codes[form.Get("code")]
	delete(p.codes, form.Get("code"))
	p.mu.Unlock()

	if !ok || entry.redirectURI != form.Get("redirect_uri") {
		writeTokenError(w, "invalid_grant")
		return
	}
	sum := sha256.Sum256([]byte(form.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != entry.codeChallenge {
		writeTokenError(w, "invalid_grant")
		return
	}

	p.issueTokens(w, entry.nonce)
}

func (p *IdentityProvider) refresh(w http.ResponseWriter, form url.Values) {
	p.mu.Lock()
	valid := p.refreshTokens[form.Get("refresh_token")]
	p.mu.Unlock()

	if !valid {
		writeTokenError(w, "invalid_grant")
		return
	}
	p.issueTokens(w, "")
}

func (p *IdentityProvider) issueTokens(w http.ResponseWriter, nonce string) {
	now := p.config.Clock.Now()
	claims := jwt.MapClaims{
		"iss":   p.Issuer(),
		"aud":   p.config.ClientID,
		"sub":   p.config.Subject,
		"email": p.config.Email,
		"name":  p.config.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(p.config.TokenLifetime).Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(idpSigningKey)
	if err != nil {
		writeTokenError(w, "server_error")
		return
	}

	refreshToken := "refresh-" + uuid.NewString()
	p.mu.Lock()
	p.refreshTokens[refreshToken] = true
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "access-" + uuid.NewString(),
		"token_type":    "Bearer",
		"expires_in":    int(p.config.TokenLifetime.Seconds()),
		"refresh_token": refreshToken,
		"id_token":      idToken,
		"scope":         "openid profile email",
	})
}

func (p *IdentityProvider) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failRevoke {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	token := r.PostForm.Get("token")
	p.revoked = append(p.revoked, token)
	delete(p.refreshTokens, token)
	w.WriteHeader(http.StatusOK)
}

func writeTokenError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
