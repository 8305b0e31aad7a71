package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"go-api-template/internal/config"
	"go-api-template/internal/database"
	"go-api-template/internal/docs"
	"go-api-template/internal/handler"
	"go-api-template/internal/middleware"
	"go-api-template/internal/password"
	"go-api-template/internal/ratelimit"
	"go-api-template/internal/repository"
	"go-api-template/internal/response"
	"go-api-template/internal/router"
	"go-api-template/internal/service"
	"go-api-template/internal/token"
	"go-api-template/internal/validation"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg          *config.Config
	log          *slog.Logger
	server       *http.Server
	db           *database.DB
	sweeper      *ratelimit.MemoryStore
	cleanupFuncs []func()
}

type options struct {
	hasher *password.Hasher
}

type Option func(*options)

// WithHasher replaces the production-cost credential hasher.
func WithHasher(h *password.Hasher) Option {
	return func(o *options) {
		o.hasher = h
	}
}

// New connects storage and assembles the HTTP stack. The caller owns the
// returned App and must call Run or Close.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (_ *App, err error) {
	o := options{hasher: password.NewHasher()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	log.Info("connecting to database")
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.Migrate(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	userRepo, err := repository.NewUserRepository(db)
	if err != nil {
		return nil, err
	}
	log.Info("database ready", "driver", db.Driver)

	store, err := a.rateLimitStore(ctx)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.NewLimiter(store, cfg.RateLimitMax, cfg.RateLimitWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to configure rate limiter: %w", err)
	}

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("failed to configure token issuer: %w", err)
	}

	translator := response.NewTranslator(!cfg.IsProduction(), log)
	validate := validation.New()

	authService, err := service.NewAuthService(userRepo, o.hasher, issuer, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	userService := service.NewUserService(userRepo, log)

	docsHandler, err := handler.NewDocsHandler(docs.OpenAPI, cfg.APIPrefix, "/api-docs/json")
	if err != nil {
		return nil, fmt.Errorf("failed to load api docs: %w", err)
	}

	appRouter := router.New(
		router.Options{
			APIPrefix:      cfg.APIPrefix,
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout,
			HSTS:           cfg.IsProduction(),
		},
		log,
		translator,
		middleware.NewAuthMiddleware(issuer, userRepo, translator),
		middleware.NewRateLimitMiddleware(limiter, cfg.AuthRateLimitRPM, router.AuthPrefix(cfg.APIPrefix), translator, log),
		router.Handlers{
			Auth:   handler.NewAuthHandler(authService, validate, translator),
			Users:  handler.NewUserHandler(userService, validate, translator),
			Health: handler.NewHealthHandler(db, log),
			Docs:   docsHandler,
		},
	)

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	return a, nil
}

func (a *App) rateLimitStore(ctx context.Context) (ratelimit.Store, error) {
	if a.cfg.RateLimitStore == config.RateLimitStoreRedis {
		client, err := database.ConnectRedis(ctx, a.cfg.RedisURL, 5, 2*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { closeRedis(client, a.log) })
		a.log.Info("rate limiter using redis store")
		return ratelimit.NewRedisStore(client, "ratelimit:"), nil
	}

	store := ratelimit.NewMemoryStore()
	a.sweeper = store
	return store, nil
}

func closeRedis(client *redis.Client, log *slog.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("failed to close redis client", "error", err)
	}
}

// Handler exposes the assembled router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.sweeper != nil {
		go a.sweeper.RunSweeper(ctx, a.cfg.RateLimitSweepInterval, a.log)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("server starting", "addr", a.server.Addr, "env", a.cfg.Env, "api_prefix", a.cfg.APIPrefix)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		a.Close()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(shutdownCtx)
	a.Close()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	a.log.Info("server stopped")
	return nil
}

// Close releases storage connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
