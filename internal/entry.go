// Package internal provides the main application initialization and runtime logic.
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

	"github.com/david8015838-create/nexus-mind/internal/api"
	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/identity"
	"github.com/david8015838-create/nexus-mind/internal/importer"
	"github.com/david8015838-create/nexus-mind/internal/remote"
	"github.com/david8015838-create/nexus-mind/internal/sse"
	"github.com/david8015838-create/nexus-mind/internal/store"
	syncengine "github.com/david8015838-create/nexus-mind/internal/sync"
)

// Run starts the application server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.Bool("cloud_enabled", cfg.Cloud.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the local store and seed the profile singleton.
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	if _, err := st.SeedProfile(); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Cloud connection. Without one the app runs offline: sync endpoints
	// report that nobody is signed in.
	var cloudStore remote.Store
	var ident identity.Provider
	var cloudIdent *identity.CloudProvider
	if cfg.Cloud.Enabled() {
		client := remote.NewHTTP(cfg.Cloud.BaseURL, cfg.Cloud.Timeout())
		cloudIdent = identity.NewCloudProvider(client, cfg.Cloud.Email, cfg.Cloud.Password)
		cloudStore = client
		ident = cloudIdent
	} else {
		cloudStore = remote.NewMemory()
		ident = identity.NewStatic(identity.User{}, false)
	}

	// Sync engine and coalescing background trigger.
	engine := syncengine.New(st, cloudStore, ident, logger)
	engine.OnStatus = func(event string, err error) {
		data := map[string]string{}
		if err != nil {
			data["error"] = err.Error()
		}
		broker.Publish(sse.Event{Type: "sync." + event, Data: data})
	}
	trigger := syncengine.NewTrigger(engine)

	// Application service wiring mutations into sync and SSE.
	svc := contactservice.NewService(st, trigger, broker.PublishChange)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes (SSE included) under /api.
	r.Mount("/api", api.NewRouter(svc, engine, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Sign in and kick off an initial push in the background. Startup does
	// not block on the cloud being reachable.
	if cloudIdent != nil {
		g.Go(func() error {
			if _, err := cloudIdent.Login(gCtx); err != nil {
				logger.Warn("cloud sign-in failed, staying offline", slog.String("error", err.Error()))
				return nil
			}
			logger.Info("signed in to cloud", slog.String("email", cfg.Cloud.Email))
			trigger.Notify()
			return nil
		})
	}

	// Background push worker.
	g.Go(func() error {
		trigger.Run(gCtx)
		return nil
	})

	// Contact file importer.
	if cfg.Importer.Dir != "" {
		imp := importer.New(svc, cfg.Importer.Dir, logger)
		g.Go(func() error {
			return imp.Run(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
