package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/JanssenProject/jans-sub050/internal/auth/http"
	"github.com/JanssenProject/jans-sub050/internal/auth/service"
	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/internal/auth/store/drivers/memory"
	"github.com/JanssenProject/jans-sub050/internal/auth/store/drivers/sqlite"
	"github.com/JanssenProject/jans-sub050/internal/auth/store/drivers/valkey"
	"github.com/JanssenProject/jans-sub050/pkg/cryptox"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
	"github.com/JanssenProject/jans-sub050/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	cache      store.GrantCache
	keyManager *jwtx.KeyManager
	hasher     *cryptox.Hasher

	// Services
	tokenService        *service.TokenService
	clientAuth          *service.ClientAuthenticator
	cibaService         *service.CIBAService
	housekeepingService *service.HousekeepingService
	pushGateway         *service.PushGateway
	callbacks           *service.HTTPClientNotifier

	// HTTP server
	server *http.Server
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "ciba-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadPepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	keyManager, err := InitAuthKeys(app.cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := app.applySeed(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run listens on the configured address and serves until SIGINT or
// SIGTERM, then shuts down gracefully.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.server.Addr, err)
	}

	served := make(chan error, 1)
	go func() { served <- app.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		_ = app.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Serve starts the housekeeping worker and serves HTTP on ln until
// Shutdown is called, returning http.ErrServerClosed then.
func (app *Application) Serve(ln net.Listener) error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"addr", ln.Addr().String(),
		"version", BuildVersion,
		"cache", app.cfg.Cache.Driver,
		"ciba_enabled", app.cfg.CIBA.Enabled,
	)
	return app.server.Serve(ln)
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Let in-flight device notifications and client callbacks finish.
	app.pushGateway.Wait()
	app.callbacks.Wait()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var firstErr error
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing grant cache", "error", err)
			firstErr = err
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initCache opens the grant cache selected by the configuration.
func (app *Application) initCache() error {
	switch app.cfg.Cache.Driver {
	case "valkey":
		c, err := valkey.Dial(app.cfg.Cache.ValkeyAddr, app.cfg.Cache.ValkeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect grant cache: %w", err)
		}
		app.cache = c
		app.logger.Info("valkey grant cache connected", "addr", app.cfg.Cache.ValkeyAddr)
	default:
		app.cache = memory.NewCache(nil)
		app.logger.Info("in-memory grant cache enabled")
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	ciba := app.cfg.CIBA

	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Store:      app.db,
		AccessTTL:  ciba.AccessTokenTTL,
		RefreshTTL: ciba.RefreshTokenTTL,
		IDTokenTTL: ciba.IDTokenTTL,
	}
	app.clientAuth = &service.ClientAuthenticator{Store: app.db, Hasher: app.hasher}

	validator, err := service.NewRequestValidator(ciba.BindingMessagePattern, ciba.ExpiresIn, ciba.MaxExpiresIn)
	if err != nil {
		return fmt.Errorf("failed to build request validator: %w", err)
	}

	outbound := &http.Client{Timeout: ciba.CallbackTimeout}
	app.pushGateway = service.NewPushGateway(ciba.NotificationEndpoint, outbound, app.logger)
	app.callbacks = service.NewHTTPClientNotifier(outbound, app.logger)

	clientKeys := jwtx.NewRemoteJWKS(outbound, ciba.JWKSCacheTTL)
	app.cibaService = &service.CIBAService{
		Config: service.CIBAConfig{
			Enabled:      ciba.Enabled,
			ExpiresIn:    ciba.ExpiresIn,
			MaxExpiresIn: ciba.MaxExpiresIn,
			Interval:     ciba.Interval,
		},
		Store:     app.db,
		Cache:     app.cache,
		Clients:   app.clientAuth,
		Validator: validator,
		Resolver: &service.UserResolver{
			Store:           app.db,
			Grants:          app.tokenService,
			Keys:            clientKeys,
			LoginHintClaims: ciba.LoginHintClaims,
		},
		Requests:  &service.RequestObjectVerifier{Keys: clientKeys, Issuer: app.cfg.Issuer},
		UserCodes: service.UserCodePolicy{Hasher: app.hasher},
		Scopes:    service.ClientScopePolicy{},
		Tokens:    app.tokenService,
		Notifier:  app.pushGateway,
		Callbacks: app.callbacks,
		Auditor:   service.SlogAuditor{Logger: app.logger},
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.cibaService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.cache,
		app.logger,
	)

	router.CIBA = app.cibaService
	router.Clients = app.clientAuth
	router.Tokens = app.tokenService
	router.Limits = app.cfg.RateLimit
	router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
