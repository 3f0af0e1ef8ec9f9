package gateway

import (
	"net/http"
	"strings"

	"indiestream/pkg/oauth"
)

// CredentialSource supplies the bearer credential. A false second return
// means requests are sent unauthenticated.
type CredentialSource interface {
	Credential() (string, bool)
}

// Inject returns req with an Authorization header carrying the credential
// from src. The original request is never modified: when a header is added
// a clone is returned, otherwise req itself. Requests whose URL matches one
// of exclusions, ignoring any query string, pass through untouched.
func Inject(req *http.Request, src CredentialSource, exclusions []string) *http.Request {
	if req == nil || req.URL == nil || src == nil {
		return req
	}
	if isExcluded(req, exclusions) {
		return req
	}
	credential, ok := src.Credential()
	if !ok || credential == "" {
		return req
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+credential)
	return out
}

func isExcluded(req *http.Request, exclusions []string) bool {
	target := requestTarget(req)
	for _, excluded := range exclusions {
		if strings.EqualFold(target, strings.TrimSuffix(excluded, "/")) {
			return true
		}
	}
	return false
}

func requestTarget(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// Transport wraps an http.RoundTripper to add the session credential.
type Transport struct {
	// Base performs the request. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Source supplies the credential at send time.
	Source CredentialSource

	// Exclusions are URLs that are never decorated.
	Exclusions []string
}

// NewTransport returns a Transport that never decorates the discovery
// documents of issuer.
func NewTransport(base http.RoundTripper, src CredentialSource, issuer string) *Transport {
	return &Transport{
		Base:       base,
		Source:     src,
		Exclusions: oauth.DiscoveryURLs(issuer),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(Inject(req, t.Source, t.Exclusions))
}

// Client returns an http.Client that sends every request through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}
