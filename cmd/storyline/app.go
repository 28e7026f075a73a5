package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/storyline"
	"github.com/aretw0/storyline/internal/config"
	"github.com/aretw0/storyline/pkg/adapters/memory"
	"github.com/aretw0/storyline/pkg/adapters/redis"
	"github.com/aretw0/storyline/pkg/dispatch"
	"github.com/aretw0/storyline/pkg/observability"
	"github.com/aretw0/storyline/pkg/persistence"
	"github.com/aretw0/storyline/pkg/ports"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 5 * time.Second
	pingTimeout     = 5 * time.Second
)

// app is the wiring shared by every command.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	story      *story.Store
	store      ports.StateStore
	engine     *storyline.Engine
	dispatcher *dispatch.Dispatcher
	metrics    *observability.Metrics
	shared     bool

	closers []func() error
}

// loadConfig reads the environment and applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Process()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("story") {
		cfg.StoryPath, _ = flags.GetString("story")
	}
	if flags.Changed("total") {
		cfg.TotalSteps, _ = flags.GetInt("total")
	}
	if flags.Changed("messages") {
		cfg.MessagesPath, _ = flags.GetString("messages")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildApp(cmd.Context(), cfg)
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	st, err := story.LoadFile(cfg.StoryPath, cfg.TotalSteps)
	if err != nil {
		return nil, err
	}
	logger.Info("Story loaded", "source", st.Source(), "steps", st.Len())

	a := &app{cfg: cfg, logger: logger, story: st}

	engineOpts := []storyline.Option{
		storyline.WithLogger(logger),
		storyline.WithLockTTL(cfg.LockTTL),
	}

	if cfg.UseRedis() {
		storeOpts := []redis.Option{
			redis.WithPrefix(cfg.RedisPrefix),
			redis.WithTTL(cfg.SessionTTL),
		}
		enc, err := cfg.Encryption()
		if err != nil {
			return nil, err
		}
		if enc != nil {
			codec, err := persistence.NewEncryptedCodec(*enc)
			if err != nil {
				return nil, err
			}
			storeOpts = append(storeOpts, redis.WithCodec(codec))
			logger.Info("Session encryption enabled", "fallback_keys", len(enc.FallbackKeys))
		}

		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, storeOpts...)
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		a.store = rs
		a.shared = true
		engineOpts = append(engineOpts,
			storyline.WithStore(rs),
			storyline.WithLocker(redis.NewLocker(rs.Client(), cfg.RedisPrefix)),
		)
		logger.Info("Using Redis session store", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
	} else {
		mem := memory.NewStore()
		a.store = mem
		engineOpts = append(engineOpts, storyline.WithStore(mem))
		logger.Debug("Using in-memory session store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewMetrics(reg)

	hooks := observability.Chain(observability.LoggingHooks(logger), a.metrics.Hooks())
	engineOpts = append(engineOpts, storyline.WithLifecycleHooks(hooks))

	a.engine, err = storyline.New(st, engineOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	messages := dispatch.DefaultMessages()
	if cfg.MessagesPath != "" {
		messages, err = dispatch.LoadMessages(cfg.MessagesPath)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.dispatcher, err = dispatch.New(a.engine,
		dispatch.WithMessages(messages),
		dispatch.WithLogger(logger),
		dispatch.WithLifecycleHooks(hooks),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases external connections.
func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("Failed to close resource", "err", err)
		}
	}
	a.closers = nil
}

// serveMetrics exposes /metrics on MetricsAddr until ctx is done. It is a no-op when no address is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := runServer(ctx, srv, a.logger); err != nil {
			a.logger.Error("Metrics server failed", "err", err)
		}
	}()
}

// runServer serves until ctx is done, then shuts down with a deadline.
func runServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Shutting down HTTP server", "addr", srv.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		return nil
	}
}
