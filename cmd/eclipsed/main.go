package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/api"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/auth"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/journal"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/session"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/stream"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("ECLIPSED_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	catalogPath := os.Getenv("ECLIPSED_CATALOG_PATH")
	if catalogPath == "" {
		logger.Error("ECLIPSED_CATALOG_PATH is required")
		os.Exit(1)
	}
	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		logger.Error("could not load eclipse catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "path", catalogPath, "eclipses", cat.Len())
	if next := cat.NearestFuture(time.Now().UTC()); next != nil {
		logger.Info("next eclipse", "id", next.ID, "name", next.Name, "date", next.Date.Format("2006-01-02"))
	}

	var jnl *journal.Journal
	if path := os.Getenv("ECLIPSED_JOURNAL_PATH"); path != "" {
		jnl, err = journal.Open(path)
		if err != nil {
			logger.Error("could not open session journal", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("session journal open", "path", path)
	} else {
		logger.Info("no ECLIPSED_JOURNAL_PATH set, sessions will not be journaled")
	}

	sessions := session.NewManager(jnl, logger, loadTickInterval(logger))

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(sessions, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, api.Deps{
		Catalog:  cat,
		Sessions: sessions,
		Stream:   streamHandler,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := srv.HTTPServer().Shutdown(shutdownCtx)
		sessions.Shutdown(shutdownCtx)
		if jnl != nil {
			if cerr := jnl.Close(); cerr != nil {
				logger.Warn("journal close error", "error", cerr)
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ECLIPSED_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ECLIPSED_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ECLIPSED_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ECLIPSED_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadTickInterval(logger *slog.Logger) time.Duration {
	interval := time.Second
	if v := os.Getenv("ECLIPSED_TICK_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 {
			logger.Warn("invalid ECLIPSED_TICK_INTERVAL_MS value, using default", "value", v, "default_ms", 1000)
		} else {
			interval = time.Duration(n) * time.Millisecond
		}
	}
	logger.Info("session tick interval", "interval_ms", interval.Milliseconds())
	return interval
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("ECLIPSED_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ECLIPSED_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ECLIPSED_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ECLIPSED_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}
