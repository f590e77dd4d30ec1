// Command platewise serves the meal-transcript resolution engine, either as
// an HTTP API or, with --mcp, as an MCP stdio server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/internal/health"
	"github.com/platewise/platewise/internal/logstore"
	"github.com/platewise/platewise/internal/mcpserver"
	"github.com/platewise/platewise/internal/observe"
	"github.com/platewise/platewise/internal/resolve"
	"github.com/platewise/platewise/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio instead of HTTP")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "platewise: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "platewise: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("platewise starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddress,
		"log_level", cfg.Server.LogLevel,
		"mcp", *mcpMode,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Provider chain ────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	clients, err := reg.BuildChain(cfg, logger)
	if err != nil {
		slog.Error("failed to build provider chain", "err", err)
		return 1
	}
	if len(clients) == 0 {
		slog.Warn("no nutrition providers configured; every item will resolve as unmatched")
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	meterProvider, err := observe.InitProvider()
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics()
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Persistence ───────────────────────────────────────────────────────────
	var store logstore.Store = logstore.NopStore{}
	var pgStore *logstore.PostgresStore
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			slog.Error("failed to create postgres pool", "err", err)
			return 1
		}
		defer pool.Close()

		pgStore = logstore.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			slog.Error("failed to migrate log store", "err", err)
			return 1
		}
		store = pgStore
		slog.Info("meal log store ready")
	} else {
		slog.Warn("postgres not configured; meal logging disabled")
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engine := resolve.NewEngine(clients,
		resolve.WithStore(store),
		resolve.WithMetrics(metrics),
		resolve.WithLogger(logger),
		resolve.WithParallelism(cfg.Resolver.Parallelism),
	)

	// ── MCP mode ──────────────────────────────────────────────────────────────
	if *mcpMode {
		if err := mcpserver.New(engine, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("mcp server error", "err", err)
			return 1
		}
		slog.Info("goodbye")
		return 0
	}

	// ── Health checks ─────────────────────────────────────────────────────────
	healthReg := health.NewRegistry(logger)
	healthReg.Register("providers", func(context.Context) error {
		if len(clients) == 0 {
			return errors.New("no providers configured")
		}
		return nil
	})
	if pgStore != nil {
		healthReg.Register("database", pgStore.Ping)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: server.New(engine, healthReg, metrics, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newLogger builds the process logger writing text to stderr at the
// configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
