package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeLoader_HTTP(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"production": true, "apiUrl": "https://api.example.com/"}`))
	}))
	defer server.Close()

	loader := NewRuntimeLoader(server.URL+"/assets/app.config.json", WithRuntimeHTTPClient(server.Client()))
	assert.Equal(t, StateAbsent, loader.State())

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.True(t, cfg.Production)
	assert.Equal(t, StateLoaded, loader.State())

	again, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, cfg, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRuntimeLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"apiUrl":"http://localhost:8080"}`), 0600))

	cfg, err := NewRuntimeLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)

	cfg, err = NewRuntimeLoader("file://" + path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
}

func TestRuntimeLoader_Failures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apiUrl":`))
	}))
	defer malformed.Close()

	missingURL := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"production":false}`))
	}))
	defer missingURL.Close()

	tests := []struct {
		name   string
		source string
		stage  string
	}{
		{"absent document", notFound.URL, "fetch"},
		{"malformed document", malformed.URL, "parse"},
		{"missing apiUrl", missingURL.URL, "validate"},
		{"missing file", filepath.Join(t.TempDir(), "nope.json"), "read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewRuntimeLoader(tt.source)
			_, err := loader.Load(context.Background())
			require.Error(t, err)

			var loadErr *ConfigLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.stage, loadErr.Stage)
			assert.True(t, errors.Is(err, &ConfigLoadError{}))
			assert.Equal(t, StateFailed, loader.State())

			_, again := loader.Load(context.Background())
			assert.Equal(t, err, again)
		})
	}
}

func TestLoadState_String(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", LoadState(42).String())
}
