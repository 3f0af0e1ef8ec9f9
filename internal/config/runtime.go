package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"indiestream/pkg/logging"
)

// LoadState is the lifecycle of the runtime configuration.
type LoadState int

const (
	StateAbsent LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// maxRuntimeConfigBytes bounds the runtime document.
const maxRuntimeConfigBytes = 1 << 20

// RuntimeLoader loads the runtime configuration exactly once. Later calls
// to Load return the first outcome.
type RuntimeLoader struct {
	source     string
	httpClient *http.Client

	mu    sync.Mutex
	state LoadState
	cfg   *RuntimeConfig
	err   error
}

// RuntimeOption configures a RuntimeLoader.
type RuntimeOption func(*RuntimeLoader)

// WithRuntimeHTTPClient sets the client used for http(s) sources.
func WithRuntimeHTTPClient(c *http.Client) RuntimeOption {
	return func(l *RuntimeLoader) {
		l.httpClient = c
	}
}

// NewRuntimeLoader creates a loader for source, an http(s) URL, a file://
// URL or a local path.
func NewRuntimeLoader(source string, opts ...RuntimeOption) *RuntimeLoader {
	l := &RuntimeLoader{
		source:     source,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current lifecycle state.
func (l *RuntimeLoader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load fetches and validates the runtime configuration. Concurrent callers
// wait for the first load. Failures are returned as *ConfigLoadError.
func (l *RuntimeLoader) Load(ctx context.Context) (*RuntimeConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateLoaded:
		return l.cfg, nil
	case StateFailed:
		return nil, l.err
	}

	l.state = StateLoading
	cfg, err := l.load(ctx)
	if err != nil {
		l.state = StateFailed
		l.err = err
		logging.Error("ConfigLoader", err, "Runtime configuration unavailable")
		return nil, err
	}

	l.state = StateLoaded
	l.cfg = cfg
	logging.Info("ConfigLoader", "Using catalog API at %s", cfg.APIURL)
	return cfg, nil
}

func (l *RuntimeLoader) load(ctx context.Context) (*RuntimeConfig, error) {
	data, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	var cfg RuntimeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "parse", Err: err}
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "validate", Err: err}
	}
	return &cfg, nil
}

func (l *RuntimeLoader) read(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(l.source)
	if err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "read", Err: err}
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetch(ctx)
	case "file":
		return l.readFile(u.Path)
	default:
		return l.readFile(l.source)
	}
}

func (l *RuntimeLoader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "fetch", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ConfigLoadError{
			Source: l.source,
			Stage:  "fetch",
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRuntimeConfigBytes))
	if err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "fetch", Err: err}
	}
	return data, nil
}

func (l *RuntimeLoader) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Source: l.source, Stage: "read", Err: err}
	}
	return data, nil
}
