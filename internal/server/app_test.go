package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/willnicht/willnicht/internal/dbx"
	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/server/config"
	"github.com/willnicht/willnicht/internal/server/repositories/listings"
	"github.com/willnicht/willnicht/internal/server/repositories/refreshtokens"
	"github.com/willnicht/willnicht/internal/server/repositories/repomanager"
	"github.com/willnicht/willnicht/internal/server/repositories/users"
)

type fakeRefreshTokens struct {
	refreshtokens.Repository
	purges chan struct{}
}

func (f *fakeRefreshTokens) DeleteExpired(context.Context, time.Time) (int64, error) {
	select {
	case f.purges <- struct{}{}:
	default:
	}
	return 1, nil
}

type fakeManager struct {
	migrateErr error
	tokens     *fakeRefreshTokens
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error     { return m.migrateErr }
func (m *fakeManager) Users(dbx.DBTX) users.Repository                 { return nil }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }
func (m *fakeManager) Listings(dbx.DBTX) listings.Repository           { return nil }

func stubDB(t *testing.T, rm repomanager.RepositoryManager, openErr error) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	origOpen, origRM := openDB, newRepoManager
	t.Cleanup(func() { openDB, newRepoManager = origOpen, origRM })

	openDB = func(string) (*sql.DB, error) {
		if openErr != nil {
			return nil, openErr
		}
		return db, nil
	}
	newRepoManager = func() repomanager.RepositoryManager { return rm }
	return mock
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	return c
}

func TestNewApp_OpenError(t *testing.T) {
	stubDB(t, &fakeManager{}, errors.New("bad dsn"))

	_, err := NewApp(context.Background(), testConfig(), logging.Discard())
	require.ErrorContains(t, err, "db init error: bad dsn")
}

func TestNewApp_PingError(t *testing.T) {
	mock := stubDB(t, &fakeManager{}, nil)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig(), logging.Discard())
	require.ErrorContains(t, err, "db ping error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_MigrationError(t *testing.T) {
	mock := stubDB(t, &fakeManager{migrateErr: errors.New("dirty")}, nil)
	mock.ExpectPing()
	mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig(), logging.Discard())
	require.ErrorContains(t, err, "migrations error: dirty")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnCancelAndClosesDB(t *testing.T) {
	tokens := &fakeRefreshTokens{purges: make(chan struct{}, 1)}
	mock := stubDB(t, &fakeManager{tokens: tokens}, nil)
	mock.ExpectPing()
	mock.ExpectClose()

	app, err := NewApp(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case <-tokens.purges:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh tokens were not purged on start")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_ListenFailureStopsApp(t *testing.T) {
	tokens := &fakeRefreshTokens{purges: make(chan struct{}, 1)}
	mock := stubDB(t, &fakeManager{tokens: tokens}, nil)
	mock.ExpectPing()
	mock.ExpectClose()

	c := testConfig()
	c.EndpointAddrHTTP = "no-port"
	app, err := NewApp(context.Background(), c, logging.Discard())
	require.NoError(t, err)

	require.Error(t, app.Run(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

