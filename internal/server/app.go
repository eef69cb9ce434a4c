// Package server wires configuration, storage, Redis and the engine into the
// webauth HTTP server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/internal/appconfig"
	"github.com/MrEthical07/webAuth/internal/httpapi"
	"github.com/MrEthical07/webAuth/metrics/export/prometheus"
	"github.com/MrEthical07/webAuth/middleware"
)

// App owns the engine and every connection it depends on.
type App struct {
	cfg     *appconfig.Config
	logger  *slog.Logger
	engine  *webAuth.Engine
	handler http.Handler
	closers []func() error
}

// NewApp connects to the configured dependencies and builds the engine.
func NewApp(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	builder := webAuth.New().
		WithConfig(cfg.EngineConfig()).
		WithCredentialStore(store).
		WithLogger(logger).
		WithAuditSink(webAuth.NewSlogSink(logger.With("component", "audit")))

	rdb, err := openRedis(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if rdb != nil {
		builder = builder.WithRedis(rdb)
		app.closers = append(app.closers, rdb.Close)
	}

	engine, err := builder.Build()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("engine build: %w", err)
	}
	app.engine = engine

	for _, warning := range engine.SecurityReport().Warnings() {
		logger.WarnContext(ctx, "security posture", "warning", warning)
	}

	app.handler = app.routes()
	return app, nil
}

func (a *App) routes() http.Handler {
	var notifier httpapi.ResetNotifier
	if a.cfg.Server.ResetOutbox != "" {
		notifier = newFileOutbox(a.cfg.Server.ResetOutbox, a.cfg.Server.ResetURL)
	} else {
		a.logger.Warn("server.reset_outbox is empty; password reset links are not delivered")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", httpapi.New(a.engine, notifier, a.logger).Routes())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if a.cfg.Auth.Metrics {
		mux.Handle("GET /metrics", prometheus.New(a.engine).Handler())
	}
	mux.HandleFunc("/", a.page)

	return middleware.Guard(a.engine)(mux)
}

// page stands in for the front-end: it reports which page was reached and by whom.
func (a *App) page(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"path": r.URL.Path}
	if s, ok := middleware.SessionFromContext(r.Context()); ok {
		body["user_id"] = s.UserID
		body["role"] = s.Role.String()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// Handler returns the guarded HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Engine returns the running engine.
func (a *App) Engine() *webAuth.Engine { return a.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops the engine and releases connections in reverse order.
func (a *App) Close() {
	if a.engine != nil {
		a.engine.Close()
		if dropped := a.engine.AuditDropped(); dropped > 0 {
			a.logger.Warn("audit events dropped", "count", dropped)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
