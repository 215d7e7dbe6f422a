package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/willnicht/willnicht/internal/client/cache"
	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/client/config"
	"github.com/willnicht/willnicht/internal/client/imaging"
	"github.com/willnicht/willnicht/internal/client/ingest"
	"github.com/willnicht/willnicht/internal/client/intake"
	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/client/services"
	"github.com/willnicht/willnicht/internal/filex"
	"github.com/willnicht/willnicht/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// quotaReader is the part of the remote client the quota command needs.
type quotaReader interface {
	EvaluationCount(ctx context.Context) (*models.Quota, error)
}

type App struct {
	config            *config.Config
	logger            logging.Logger
	repos             *client.Repositories
	authService       services.AuthService
	evaluationService services.EvaluationService
	sync              *services.Synchronizer
	quota             quotaReader
	queue             *intake.Queue
	events            func(ctx context.Context) <-chan models.IdentityEvent
	reader            *bufio.Reader
	out               io.Writer

	modeMu sync.RWMutex
	mode   Mode

	closeOnce sync.Once
}

// NewApp opens the local cache file, builds the remote client and wires the
// services together.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	path, err := filex.DataFile(c.DataDir, c.CacheFile)
	if err != nil {
		return nil, err
	}

	repos, err := client.InitDatabase(ctx, path)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", path, "err", err)
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.ServerURL, c.RemoteTimeout, logger)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	synchronizer := services.NewSynchronizer(
		cache.New(repos.Metadata, logger),
		apiClient,
		imaging.NewNormalizer(),
		logger,
		services.SyncOptions{RemoteEnabled: c.RemoteEnabled, PageSize: c.PageSize},
	)

	evaluator := ingest.NewEvaluator(c.EvaluatorURL, c.EvaluatorTimeout, c.EvaluatorRate, logger)
	es := services.NewEvaluationService(evaluator, ingest.NewPipeline(), apiClient, synchronizer, c.RemoteEnabled, logger)

	mode := ModeOffline
	if !c.RemoteEnabled {
		mode = ModeDisabled
	}

	return &App{
		config:            c,
		logger:            logger.With("module", "cli"),
		repos:             repos,
		authService:       services.NewAuthService(apiClient, repos.Metadata, logger),
		evaluationService: es,
		sync:              synchronizer,
		quota:             apiClient,
		queue:             intake.NewQueue(intake.NewValidator()),
		events:            apiClient.Subscribe,
		reader:            bufio.NewReader(os.Stdin),
		out:               os.Stdout,
		mode:              mode,
	}, nil
}

// Run restores the previous session, starts the background watchers and
// blocks in the REPL until the user leaves or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer a.Close()

	a.sync.OnChange(func(results []models.EvaluationResult) {
		a.logger.Debug(ctx, "results updated", "count", len(results))
	})
	go a.sync.WatchIdentity(ctx, a.events(ctx))

	a.start(ctx)

	if a.Mode() != ModeDisabled {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	fmt.Fprintln(a.out, "Willnicht (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close remembers the session and closes the local cache file. It is safe
// to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		ctx := context.Background()
		if err := a.authService.Close(ctx); err != nil {
			a.logger.Warn(ctx, "close", "err", err)
		}
		if a.repos != nil {
			if err := a.repos.Close(); err != nil {
				a.logger.Warn(ctx, "close database", "err", err)
			}
		}
	})
}

// start shows what the local cache holds. A restored session loads the
// remote snapshot through the identity watcher instead.
func (a *App) start(ctx context.Context) {
	if a.Mode() != ModeDisabled {
		restored, err := a.authService.Restore(ctx)
		if err != nil {
			a.logger.Warn(ctx, "session not restored", "err", err)
		}
		if restored {
			a.setMode(ModeOnline)
			return
		}
	}
	a.sync.Load(ctx)
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

// setMode reports whether the mode changed.
func (a *App) setMode(mode Mode) bool {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.logger.Info(context.Background(), fmt.Sprintf("Switched to %s mode", mode))
	}
	return changed
}

func (a *App) isLoggedIn() bool {
	return a.authService.Session() != nil
}

func (a *App) getStatus() string {
	s := string(a.Mode())
	if sess := a.authService.Session(); sess != nil {
		s = sess.Email + " " + s
	}
	return s
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// mode between online and offline until ctx is done. Coming back online
// without a session retries the remembered one.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
				continue
			}
			if a.setMode(ModeOnline) && !a.isLoggedIn() {
				if _, err := a.authService.Restore(ctx); err != nil {
					a.logger.Warn(ctx, "session not restored", "err", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
