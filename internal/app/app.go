package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/danmcgrath10/cyclora/internal/auth"
	"github.com/danmcgrath10/cyclora/internal/config"
	"github.com/danmcgrath10/cyclora/internal/local"
	"github.com/danmcgrath10/cyclora/internal/remote"
	"github.com/danmcgrath10/cyclora/internal/ride"
	"github.com/danmcgrath10/cyclora/internal/session"
	"github.com/danmcgrath10/cyclora/internal/summary"
)

// App is the application layer between the CLI and the ride service.
// It constructs all dependencies from config and manages store lifecycles
// on Close.
type App struct {
	cfg     *config.Config
	local   ride.LocalStore
	remote  *remote.PostgresStore
	service *ride.Service
	session *session.Session
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "RidesList", "Sync"); it tags
// every log line of the invocation. The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	localStore, err := local.NewStoreFromConfig(cfg.Local)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating local store: %w", err)
	}

	if cfg.Remote.URL == "" {
		localStore.Close()
		logFile.Close()
		return nil, fmt.Errorf("no archive configured: set remote.url in the config file")
	}

	provider := auth.NewJWTProvider(
		&auth.FileTokenSource{Path: cfg.Auth.TokenPath},
		[]byte(cfg.Auth.JWTSecret),
	)

	remoteStore, err := remote.NewPostgresStore(
		ctx,
		cfg.Remote.URL,
		provider,
		time.Duration(cfg.Remote.Timeout())*time.Second,
		ride.RealClock{},
	)
	if err != nil {
		localStore.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive store: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	svc := ride.NewService(localStore, remoteStore, ride.TimerScheduler{}, adapter, ride.RealClock{})

	if err := svc.Initialize(ctx); err != nil {
		remoteStore.Close()
		localStore.Close()
		logFile.Close()
		return nil, fmt.Errorf("initializing ride service: %w", err)
	}

	gen, err := newGenerator(ctx, cfg.Summary)
	if err != nil {
		remoteStore.Close()
		localStore.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating summary generator: %w", err)
	}

	return &App{
		cfg:     cfg,
		local:   localStore,
		remote:  remoteStore,
		service: svc,
		session: session.New(svc, gen, adapter, cfg.Remote.PageSize),
		logFile: logFile,
	}, nil
}

// newGenerator builds the summary generator, or nil when disabled.
func newGenerator(ctx context.Context, cfg config.SummaryConfig) (summary.Generator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("summaries enabled but %s is not set", cfg.APIKeyEnv)
	}
	return summary.NewGeminiGenerator(ctx, apiKey, cfg.Model, cfg.RequestsPerMinute)
}

// Session returns the caller-facing state facade.
func (a *App) Session() *session.Session { return a.session }

// Service returns the underlying hybrid ride service.
func (a *App) Service() *ride.Service { return a.service }

// Close releases all resources.
func (a *App) Close() error {
	var firstErr error

	a.remote.Close()

	if err := a.local.Close(); err != nil {
		firstErr = fmt.Errorf("closing local store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
