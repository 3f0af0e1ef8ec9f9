package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"indiestream/internal/catalog"
	"indiestream/internal/config"
	"indiestream/internal/gateway"
	"indiestream/internal/session"
	"indiestream/pkg/logging"
)

// Application holds the assembled components.
type Application struct {
	Settings config.Settings
	Runtime  *config.RuntimeConfig

	Session   *session.Manager
	Transport *gateway.Transport
	Guard     *gateway.Guard
	Router    *gateway.Router
	Catalog   *catalog.Client
	Engine    *catalog.Engine

	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewApplication loads configuration and wires every component. A
// configuration failure is fatal. A session initialization failure is
// logged and the application continues unauthenticated.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	settings, err := loadSettings(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load settings")
		return nil, err
	}
	if !cfg.Debug && settings.LogLevel != "" {
		if level, ok := logging.ParseLevel(settings.LogLevel); ok {
			logging.InitForCLI(level, os.Stderr)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: settings.Catalog.RequestTimeout}
	}

	loader := config.NewRuntimeLoader(settings.ConfigURL, config.WithRuntimeHTTPClient(httpClient))
	runtime, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	manager, err := newSessionManager(cfg, settings, httpClient)
	if err != nil {
		return nil, err
	}
	if _, err := manager.InitializeSession(ctx, nil); err != nil {
		var initErr *session.AuthInitError
		if !errors.As(err, &initErr) {
			return nil, err
		}
		logging.Warn("Bootstrap", "Continuing without a session: %v", err)
	}

	transport := gateway.NewTransport(httpClient.Transport, manager, settings.Auth.Issuer)
	guard := gateway.NewGuard(interactiveLogin{manager})
	router := gateway.NewRouter(guard)

	apiClient := catalog.NewClient(runtime.APIURL, &http.Client{
		Transport: transport,
		Timeout:   settings.Catalog.RequestTimeout,
	})
	engine, err := catalog.NewEngine(apiClient, catalog.Config{
		PollInterval:      settings.Catalog.PollInterval,
		MaxPolls:          settings.Catalog.MaxPolls,
		Workers:           settings.Catalog.Workers,
		AllowedExtensions: settings.Upload.AllowedExtensions,
		MaxSizeBytes:      settings.Upload.MaxSizeBytes,
	})
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to create catalog engine: %w", err)
	}

	logging.Debug("Bootstrap", "Application assembled (api=%s, issuer=%s)", runtime.APIURL, settings.Auth.Issuer)
	return &Application{
		Settings:  settings,
		Runtime:   runtime,
		Session:   manager,
		Transport: transport,
		Guard:     guard,
		Router:    router,
		Catalog:   apiClient,
		Engine:    engine,
	}, nil
}

func loadSettings(cfg *Config) (config.Settings, error) {
	if cfg.Settings != nil {
		if err := cfg.Settings.Validate(); err != nil {
			return config.Settings{}, &config.ConfigLoadError{Source: "settings", Stage: "validate", Err: err}
		}
		return *cfg.Settings, nil
	}

	dir := cfg.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultConfigDir(); err != nil {
			return config.Settings{}, err
		}
	}
	return config.LoadSettings(dir)
}

func newSessionManager(cfg *Config, settings config.Settings, httpClient *http.Client) (*session.Manager, error) {
	opts := []session.Option{session.WithHTTPClient(httpClient)}

	if settings.Auth.SessionFile != "" {
		store, err := session.NewStore(settings.Auth.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		opts = append(opts, session.WithStore(store))
	}

	navigator := cfg.Navigator
	if navigator == nil {
		out := cfg.Out
		if out == nil {
			out = os.Stderr
		}
		navigator = session.BrowserNavigator{Out: out, NoBrowser: cfg.NoBrowser}
	}
	opts = append(opts, session.WithNavigator(navigator))

	return session.NewManager(session.Config{
		Issuer:        settings.Auth.Issuer,
		ClientID:      settings.Auth.ClientID,
		ClientSecret:  settings.Auth.ClientSecret,
		RedirectURL:   settings.Auth.RedirectURL,
		Scopes:        settings.Auth.Scopes,
		Credential:    session.CredentialKind(settings.Auth.Credential),
		RenewalFactor: settings.Auth.RenewalFactor,
	}, opts...), nil
}

// Start runs the background parts of the application: catalog
// reconciliation and, when a session file is configured, the watcher that
// picks up logins made by other processes.
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Engine.Start(ctx); err != nil {
		cancel()
		return err
	}
	if a.Settings.Auth.SessionFile != "" {
		go func() {
			if err := a.Session.WatchStore(ctx); err != nil && ctx.Err() == nil {
				logging.Warn("Bootstrap", "Session file watcher stopped: %v", err)
			}
		}()
	}
	return nil
}

// Close stops background work and the renewal timer.
func (a *Application) Close() {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.Engine.Stop()
		a.Session.Close()
	})
}
