package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/david8015838-create/nexus-mind/internal/cloud"
	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/identity"
	"github.com/david8015838-create/nexus-mind/internal/mcpserver"
	"github.com/david8015838-create/nexus-mind/internal/remote"
	"github.com/david8015838-create/nexus-mind/internal/store"
	syncengine "github.com/david8015838-create/nexus-mind/internal/sync"
)

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// RunCloudServer starts the hosted mirror service.
func RunCloudServer(ctx context.Context, cfg *Config) error {
	if err := cfg.CloudServer.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	srv := cloud.NewServer(cfg.CloudServer.Accounts, cfg.CloudServer.JWTSecret, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", srv.Router())

	httpServer := &http.Server{
		Addr:    cfg.CloudServer.Address(),
		Handler: r,
	}

	logger.Info("Cloud server starting...",
		slog.String("address", cfg.CloudServer.Address()),
		slog.Int("accounts", len(cfg.CloudServer.Accounts)))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// signedInEngine opens the local store, signs in to the configured cloud,
// and returns a ready sync engine. The caller must Close the store.
func signedInEngine(ctx context.Context, cfg *Config, logger *slog.Logger) (*syncengine.Engine, *store.Store, error) {
	if !cfg.Cloud.Enabled() {
		return nil, nil, fmt.Errorf("cloud: base_url is not configured")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	client := remote.NewHTTP(cfg.Cloud.BaseURL, cfg.Cloud.Timeout())
	ident := identity.NewCloudProvider(client, cfg.Cloud.Email, cfg.Cloud.Password)
	if _, err := ident.Login(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}

	return syncengine.New(st, client, ident, logger), st, nil
}

// RunPush performs a one-shot mirror of local data to the cloud.
func RunPush(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg)

	engine, st, err := signedInEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := engine.Push(ctx); err != nil {
		return err
	}
	logger.Info("push completed")
	return nil
}

// RunPull performs a one-shot restore of local data from the cloud. Pull
// replaces local collections, so the caller has to confirm explicitly.
func RunPull(ctx context.Context, cfg *Config, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("pull replaces local data with the cloud copy; rerun with --yes to confirm")
	}
	logger := newLogger(cfg)

	engine, st, err := signedInEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := engine.Pull(ctx); err != nil {
		return err
	}
	logger.Info("pull completed")
	return nil
}

// RunMCP serves the MCP tools over stdio against the local store.
func RunMCP(_ context.Context, cfg *Config) error {
	// MCP talks JSON-RPC over stdout, so logs go to stderr here.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	if _, err := st.SeedProfile(); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}

	svc := contactservice.NewService(st, nil, nil)
	return mcpserver.New(svc).ServeStdio()
}
