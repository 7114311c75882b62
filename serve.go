package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hychen958/Water-trekkie-gov/internal/auth"
	"github.com/hychen958/Water-trekkie-gov/internal/catalog"
	"github.com/hychen958/Water-trekkie-gov/internal/config"
	"github.com/hychen958/Water-trekkie-gov/internal/httpserver"
	"github.com/hychen958/Water-trekkie-gov/internal/limit"
	"github.com/hychen958/Water-trekkie-gov/internal/session"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
	"github.com/hychen958/Water-trekkie-gov/internal/store/redis"
	"github.com/hychen958/Water-trekkie-gov/internal/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

// app holds the long-lived pieces built from Config.
type app struct {
	db       *sqlite.DB
	states   store.Store
	sessions *session.Manager
	handler  http.Handler
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

// newLimitProvider prefers a configured static budget over the open-data feed.
func newLimitProvider(cfg config.Config) limit.Provider {
	if cfg.DailyLimit > 0 {
		return limit.Static(cfg.DailyLimit)
	}
	return limit.NewOpenData(cfg.LimitSourceURL)
}

// newStateStore picks the snapshot backend named by STATE_BACKEND.
func newStateStore(ctx context.Context, cfg config.Config, db *sqlite.DB) (store.Store, func() error, error) {
	switch cfg.StateBackend {
	case config.BackendRedis:
		rs := redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, redis.WithPrefix(cfg.RedisPrefix))
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return rs, rs.Close, nil
	case config.BackendMemory:
		log.Warn().Msg("memory state backend: saved games are lost on restart")
		return store.NewMemoryStore(), func() error { return nil }, nil
	default:
		return sqlite.NewStateStore(db), func() error { return nil }, nil
	}
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if err := db.Migrate(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	states, closeStates, err := newStateStore(ctx, cfg, db)
	if err != nil {
		a.close()
		return nil, err
	}
	a.states = states
	a.closers = append(a.closers, closeStates)

	limits := newLimitProvider(cfg)
	a.sessions = session.NewManager(states, limits, cat, session.Config{
		TrialDuration: cfg.TrialDuration,
		IdleTimeout:   cfg.SessionIdleTimeout,
	})

	srv := httpserver.New(httpserver.Deps{
		Auth:     auth.NewService(sqlite.NewUserStore(db), cfg.JWTSecret, cfg.JWTTTL),
		States:   states,
		Sessions: a.sessions,
		Limits:   limits,
		Catalog:  cat,
	}, httpserver.Options{
		ClientOrigin:      cfg.ClientOrigin,
		AuthRatePerMinute: cfg.AuthRateLimit,
		RequestTimeout:    cfg.RequestTimeout,
	})
	a.handler = srv.Handler()
	return a, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "dev_secret_change_me" {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	go a.sessions.Run(ctx)

	hs := &http.Server{Addr: cfg.Addr(), Handler: a.handler}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("backend", cfg.StateBackend).Msg("starting watertrek")
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	a.sessions.Close(shutdownCtx)
	return nil
}
