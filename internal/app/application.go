// Package app wires the shop services together and manages the HTTP
// server lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/httpapi"
	"github.com/advantage-shop/shop-service/internal/app/services/catalogsvc"
	"github.com/advantage-shop/shop-service/internal/app/services/checkout"
	"github.com/advantage-shop/shop-service/internal/app/services/selector"
	sessionsvc "github.com/advantage-shop/shop-service/internal/app/services/session"
	"github.com/advantage-shop/shop-service/internal/app/storage"
	"github.com/advantage-shop/shop-service/internal/app/storage/memory"
	"github.com/advantage-shop/shop-service/internal/app/storage/postgres"
	redisstore "github.com/advantage-shop/shop-service/internal/app/storage/redis"
	"github.com/advantage-shop/shop-service/internal/config"
	"github.com/advantage-shop/shop-service/internal/database"
	"github.com/advantage-shop/shop-service/internal/middleware"
	"github.com/advantage-shop/shop-service/pkg/logger"
)

// Application ties the services together and runs the HTTP server.
type Application struct {
	cfg *config.Config
	log *logger.Logger

	Catalog  *catalogsvc.Service
	Sessions *sessionsvc.Service
	Checkout *checkout.Service

	server *http.Server
	db     *sqlx.DB
	redis  *goredis.Client
	stopRL chan struct{}
}

// NewApplication wires a full application from configuration.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Component: "app",
	})

	a := &Application{cfg: cfg, log: log}

	catalogStore, orderStore, sessionStore, err := a.buildStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	a.Catalog, err = catalogsvc.NewService(ctx, catalogStore, log.WithField("component", "catalog"))
	if err != nil {
		a.closeResources()
		return nil, err
	}
	if cfg.Catalog.SeedFile != "" {
		if err := a.seedCatalog(ctx, cfg.Catalog.SeedFile); err != nil {
			a.closeResources()
			return nil, err
		}
	}

	renderer, err := selector.NewRenderer()
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("build cart renderer: %w", err)
	}

	a.Sessions = sessionsvc.NewService(sessionStore, a.Catalog, renderer, sessionsvc.Config{
		TTL:       cfg.Sessions.TTL,
		SweepSpec: cfg.Sessions.SweepSpec,
		Selector: selector.Options{
			Debounce:       time.Duration(cfg.Wizard.DebounceMillis) * time.Millisecond,
			DefaultVersion: cfg.Wizard.DefaultVersion,
		},
	}, log.WithField("component", "session"))

	a.Checkout = checkout.NewService(a.Catalog, orderStore, log.WithField("component", "checkout"))

	var adminAuth *middleware.AdminAuth
	if cfg.Auth.AdminSecret != "" {
		adminAuth = middleware.NewAdminAuth([]byte(cfg.Auth.AdminSecret), log)
	} else {
		log.Warn("auth.admin_secret not set; catalog mutations are unauthenticated")
	}

	handler := httpapi.NewHandler(httpapi.Deps{
		Sessions:  a.Sessions,
		Catalog:   a.Catalog,
		Checkout:  a.Checkout,
		AdminAuth: adminAuth,
		Log:       log.WithField("component", "httpapi"),
	})

	if cfg.Server.RequestsPerSecond > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst, log)
		a.stopRL = make(chan struct{})
		rl.StartCleanup(10*time.Minute, a.stopRL)
		handler = rl.Handler(handler)
	}

	a.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// Run starts the session janitor and HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Sessions.Start(); err != nil {
		return err
	}
	if err := a.Catalog.StartReload(a.cfg.Catalog.ReloadSpec); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and releases resources.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)

	a.Sessions.Stop()
	a.Catalog.Stop()
	a.closeResources()
	return err
}

func (a *Application) buildStores(cfg *config.Config) (storage.CatalogStore, storage.OrderStore, storage.SessionStore, error) {
	var (
		catalogStore storage.CatalogStore
		orderStore   storage.OrderStore
		sessionStore storage.SessionStore
	)

	switch cfg.Database.Driver {
	case "postgres":
		if err := database.Migrate(cfg.Database.DSN, cfg.Database.MigrationsDir, a.log); err != nil {
			return nil, nil, nil, err
		}
		db, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		a.db = db
		pg := postgres.New(db)
		catalogStore, orderStore, sessionStore = pg, pg, pg
	default:
		mem := memory.New()
		catalogStore, orderStore, sessionStore = mem, mem, mem
	}

	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.redis = client
		sessionStore = redisstore.NewSessionStore(client)
	}

	return catalogStore, orderStore, sessionStore, nil
}

func (a *Application) seedCatalog(ctx context.Context, path string) error {
	products, err := catalog.LoadFile(path)
	if err != nil {
		// A missing seed file is tolerated so a fresh deployment can
		// come up with an empty catalog.
		a.log.WithError(err).Warnf("catalog seed %s not loaded", path)
		return nil
	}
	if err := a.Catalog.Seed(ctx, products); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

func (a *Application) closeResources() {
	if a.stopRL != nil {
		close(a.stopRL)
		a.stopRL = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis client")
		}
		a.redis = nil
	}
}
