package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("creates client with defaults", func(t *testing.T) {
		c := NewClient()
		if c.httpClient == nil {
			t.Error("expected httpClient to be set")
		}
		if c.metadataTTL != DefaultMetadataCacheTTL {
			t.Errorf("expected metadataTTL to be %v, got %v", DefaultMetadataCacheTTL, c.metadataTTL)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		customHTTP := &http.Client{Timeout: 10 * time.Second}
		c := NewClient(WithHTTPClient(customHTTP), WithMetadataCacheTTL(time.Minute))

		if c.HTTPClient() != customHTTP {
			t.Error("expected custom httpClient to be set")
		}
		if c.metadataTTL != time.Minute {
			t.Errorf("expected metadataTTL to be 1m, got %v", c.metadataTTL)
		}
	})
}

func TestDiscoverMetadata(t *testing.T) {
	t.Run("discovers via RFC 8414 endpoint", func(t *testing.T) {
		metadata := &Metadata{
			Issuer:                "https://issuer.example.com",
			AuthorizationEndpoint: "https://issuer.example.com/authorize",
			TokenEndpoint:         "https://issuer.example.com/token",
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == WellKnownAuthorizationServer {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(metadata)
				return
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		result, err := c.DiscoverMetadata(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.AuthorizationEndpoint != metadata.AuthorizationEndpoint {
			t.Errorf("expected auth endpoint %s, got %s", metadata.AuthorizationEndpoint, result.AuthorizationEndpoint)
		}
	})

	t.Run("falls back to OIDC endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == WellKnownOpenIDConfiguration {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"authorization_endpoint": "https://idp/auth",
					"token_endpoint":         "https://idp/token",
					"revocation_endpoint":    "https://idp/revoke",
				})
				return
			}
			http.NotFound(w, r)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		result, err := c.DiscoverMetadata(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.RevocationEndpoint != "https://idp/revoke" {
			t.Errorf("expected revocation endpoint, got %q", result.RevocationEndpoint)
		}
		if result.Issuer != server.URL {
			t.Errorf("expected issuer to default to %s, got %s", server.URL, result.Issuer)
		}
	})

	t.Run("rejects metadata without token endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"authorization_endpoint": "https://idp/auth"})
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		if _, err := c.DiscoverMetadata(context.Background(), server.URL); err == nil {
			t.Error("expected error for incomplete metadata")
		}
	})

	t.Run("returns error when both endpoints fail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		if _, err := c.DiscoverMetadata(context.Background(), server.URL); err == nil {
			t.Error("expected error when discovery fails")
		}
	})
}

func TestDiscoverMetadata_Caching(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(10 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(Metadata{
			Issuer:                "https://idp",
			AuthorizationEndpoint: "https://idp/auth",
			TokenEndpoint:         "https://idp/token",
		})
	}))
	defer server.Close()

	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := NewClient(WithHTTPClient(server.Client()), WithNow(clock), WithMetadataCacheTTL(time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.DiscoverMetadata(context.Background(), server.URL); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := requests.Load(); got != 1 {
		t.Errorf("expected concurrent discoveries to share one request, got %d", got)
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	if _, err := c.DiscoverMetadata(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("expected expired cache entry to be refetched, got %d requests", got)
	}

	c.ClearMetadataCache()
	if _, err := c.DiscoverMetadata(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("expected cleared cache to refetch, got %d requests", got)
	}
}

func TestRevokeToken(t *testing.T) {
	t.Run("posts token and hint", func(t *testing.T) {
		var gotToken, gotHint string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			gotToken = r.PostForm.Get("token")
			gotHint = r.PostForm.Get("token_type_hint")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		if err := c.RevokeToken(context.Background(), server.URL, "access-123", "access_token", "client"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotToken != "access-123" || gotHint != "access_token" {
			t.Errorf("unexpected form values token=%q hint=%q", gotToken, gotHint)
		}
	})

	t.Run("fails on non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(WithHTTPClient(server.Client()))
		if err := c.RevokeToken(context.Background(), server.URL, "t", "", ""); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("fails without endpoint", func(t *testing.T) {
		if err := NewClient().RevokeToken(context.Background(), "", "t", "", ""); err == nil {
			t.Error("expected error")
		}
	})
}

func TestDiscoveryURLs(t *testing.T) {
	urls := DiscoveryURLs("https://accounts.google.com/")
	want := []string{
		"https://accounts.google.com/.well-known/oauth-authorization-server",
		"https://accounts.google.com/.well-known/openid-configuration",
	}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %d", len(want), len(urls))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("url %d: expected %s, got %s", i, want[i], urls[i])
		}
	}
}
