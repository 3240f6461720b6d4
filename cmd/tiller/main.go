package main

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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tillerhq/tiller/internal/config"
	"github.com/tillerhq/tiller/internal/provider"
	"github.com/tillerhq/tiller/internal/ratelimit"
	"github.com/tillerhq/tiller/internal/server"
	"github.com/tillerhq/tiller/internal/service/chat"
	"github.com/tillerhq/tiller/internal/session"
	"github.com/tillerhq/tiller/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("tiller starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Session store (optional; one-shot requests work without it).
	var store session.Store = session.NoopStore{}
	var redisStore *session.RedisStore
	if cfg.SessionStoreURL != "" {
		redisStore, err = session.NewRedisStore(cfg.SessionStoreURL, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("session store: %w", err)
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisStore.Ping(pingCtx)
		pingCancel()
		if err != nil {
			return fmt.Errorf("session store ping: %w", err)
		}
		store = redisStore
	}
	defer func() { _ = store.Close() }()

	// Model provider (optional; without it every render is the fallback).
	var caller provider.Caller
	if cfg.ModelBaseURL != "" && cfg.ModelCallsEnabled {
		caller = provider.NewClient(provider.ClientConfig{
			BaseURL:         cfg.ModelBaseURL,
			APIKey:          cfg.ModelAPIKey,
			Model:           cfg.ModelName,
			CallTimeout:     cfg.ModelCallTimeout,
			MaxTokens:       cfg.ModelMaxTokens,
			BreakerFailures: cfg.BreakerFailures,
			BreakerWindow:   cfg.BreakerWindow,
			BreakerOpenFor:  cfg.BreakerOpenFor,
		}, nil)
	} else {
		slog.Warn("model provider not configured, all renders use the fallback")
	}

	// Per-IP rate limiter for /api/chat. With a redis session store the
	// limiter shares its connection so limits hold across replicas.
	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if cfg.RateLimitPerMinute > 0 {
		if redisStore != nil {
			limiter = ratelimit.NewRedisLimiter(redisStore.Client(), cfg.RateLimitPerMinute, time.Minute, logger)
		} else {
			limiter = ratelimit.NewMemoryLimiter(
				float64(cfg.RateLimitPerMinute)/60.0,
				cfg.RateLimitPerMinute,
			)
		}
	}
	defer func() { _ = limiter.Close() }()

	chatSvc := chat.New(cfg, store, caller, logger)

	srv := server.New(server.Deps{
		Config:  cfg,
		ChatSvc: chatSvc,
		Limiter: limiter,
		Logger:  logger,
		Version: version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("tiller shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
