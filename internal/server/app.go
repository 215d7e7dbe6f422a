// Package server wires the backend together: the Postgres pool and its
// migrations, the services, the S3 image bucket and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/server/config"
	"github.com/willnicht/willnicht/internal/server/httpapi"
	"github.com/willnicht/willnicht/internal/server/repositories/repomanager"
	"github.com/willnicht/willnicht/internal/server/services"
)

const tokenPurgeInterval = time.Hour

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepoManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	userService    *services.UserService
	listingService *services.ListingService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		userService:    services.NewUserService(db, rm, c),
		listingService: services.NewListingService(db, rm, services.NewS3Storage(c), c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// purgeTokens drops expired refresh tokens now and then every interval.
func (app *App) purgeTokens(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := app.userService.PurgeExpiredTokens(ctx)
		if err != nil {
			app.logger.Warn(ctx, "purge refresh tokens", "err", err)
		} else if n > 0 {
			app.logger.Info(ctx, "purged refresh tokens", "count", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Run serves the API until a signal arrives, ctx is done or the server
// fails, and closes the database afterwards.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	srv := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.listingService, app.config.SecretKey)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return app.purgeTokens(ctx, tokenPurgeInterval)
	})

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(context.Background(), "close database", "err", cerr)
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
