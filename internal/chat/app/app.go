package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/gateway"
	httpapi "github.com/aussiebroadwan/tabchat/internal/chat/http"
	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/internal/chat/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/cryptox"
	"github.com/aussiebroadwan/tabchat/pkg/envelope"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the chat server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	envelope *envelope.Envelope
	limiter  ratelimit.Limiter
	sweeper  ratelimit.Sweeper // nil when Redis holds cooldowns
	redis    *redis.Client

	sessionService      *service.SessionService
	guard               *service.Guard
	userService         *service.UserService
	postService         *service.PostService
	housekeepingService *service.HousekeepingService

	gateway *gateway.Gateway

	server *http.Server
	router *httpapi.Router

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// New creates an Application with every dependency initialised.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "chat-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	env, err := InitEnvelope(ctx, app.cfg.Encryption, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}
	app.envelope = env

	if err := app.initLimiter(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	if err := app.initGateway(); err != nil {
		app.closeBackends()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	watchCtx, stop := context.WithCancel(context.Background())
	app.stopWatch = stop
	app.watchDone = make(chan struct{})
	go watchEnvelope(watchCtx, app.envelope, app.cfg.Encryption, app.logger, app.watchDone)

	app.logger.Info("chat service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, closes live gateway connections and
// releases the backends.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down chat service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Hijacked websocket connections are not tracked by the server.
	app.gateway.Close()

	app.housekeepingService.Stop()

	if app.stopWatch != nil {
		app.stopWatch()
		select {
		case <-app.watchDone:
		case <-ctx.Done():
			app.logger.Warn("key watcher did not stop in time")
		}
	}

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("chat service stopped")
	return nil
}

func (app *Application) closeBackends() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initLimiter uses Redis when REDIS_ADDR is set so cooldowns hold across
// replicas, and an in-process map otherwise.
func (app *Application) initLimiter(ctx context.Context) error {
	if app.cfg.Redis.Addr == "" {
		mem := ratelimit.NewMemory(clock.Real())
		app.limiter = mem
		app.sweeper = mem
		app.logger.Info("using in-memory cooldowns")
		return nil
	}

	client, err := ratelimit.NewRedisClient(ctx, app.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.limiter = ratelimit.NewRedis(client, app.cfg.Redis.KeyPrefix)
	app.logger.Info("using redis cooldowns", "addr", app.cfg.Redis.Addr)
	return nil
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{Store: app.db}
	app.guard = &service.Guard{
		Sessions: app.sessionService,
		Store:    app.db,
		Limiter:  app.limiter,
	}
	app.userService = &service.UserService{
		Store:    app.db,
		Sessions: app.sessionService,
		Sealer:   app.envelope,
	}
	app.postService = &service.PostService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.sweeper,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initGateway() error {
	handlers := gateway.Handlers(gateway.Services{
		Users:   app.userService,
		Guard:   app.guard,
		Posts:   app.postService,
		Limiter: app.limiter,
	})

	gw, err := gateway.New(app.cfg.Gateway, handlers, app.logger.With("component", "gateway"))
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}
	app.gateway = gw

	// Profiles report live presence and posts fan out to every connection.
	app.userService.Presence = gw
	app.postService.Broadcaster = gw
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.Sessions = app.sessionService
	router.Guard = app.guard
	router.Users = app.userService
	router.Posts = app.postService
	router.Limiter = app.limiter
	router.Gateway = gateway.NewWebSocketHandler(app.gateway, gateway.WebSocketConfig{
		AllowedOrigins: app.cfg.AllowedOrigins,
	})
	if app.envelope.Provider() != nil {
		router.Encryption = app.envelope
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
