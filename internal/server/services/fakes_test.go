package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/dbx"
	"github.com/willnicht/willnicht/internal/server/models"
	"github.com/willnicht/willnicht/internal/server/repositories/listings"
	"github.com/willnicht/willnicht/internal/server/repositories/refreshtokens"
	"github.com/willnicht/willnicht/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	byID    map[string]*models.User

	createErr error
	getErr    error
	lockErr   error
	locked    []string
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = "u-" + u.Email
	u.CreatedAt = time.Now()
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Lock(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, id)
	return f.lockErr
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken

	findErr   error
	deleteErr error
	createErr error
	purged    int64
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.tokens[token]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, rt := range f.tokens {
		if rt.Expires.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	f.purged += n
	return n, nil
}

type fakeListingsRepo struct {
	mu    sync.Mutex
	items []*models.Listing
	seq   int

	count    int
	countErr error
	since    time.Time

	createErr error
	listErr   error
	lastLimit int
	lastOff   int
}

func (f *fakeListingsRepo) Create(_ context.Context, l *models.Listing) (*models.Listing, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	cp := *l
	cp.ID = fmt.Sprintf("l-%d", f.seq)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.items = append([]*models.Listing{&cp}, f.items...)
	return &cp, nil
}

func (f *fakeListingsRepo) List(_ context.Context, userID string, limit, offset int) ([]*models.Listing, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastOff = limit, offset
	out := []*models.Listing{}
	for _, l := range f.items {
		if l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeListingsRepo) Get(_ context.Context, userID, id string) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.items {
		if l.UserID == userID && l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeListingsRepo) Delete(_ context.Context, userID, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.items {
		if l.UserID == userID && l.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return l.ImageKey, nil
		}
	}
	return "", common.ErrorNotFound
}

func (f *fakeListingsRepo) DeleteAll(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	kept := f.items[:0]
	for _, l := range f.items {
		if l.UserID != userID {
			kept = append(kept, l)
			continue
		}
		if l.ImageKey != "" {
			keys = append(keys, l.ImageKey)
		}
	}
	f.items = kept
	return keys, nil
}

func (f *fakeListingsRepo) CountSince(_ context.Context, _ string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since
	return f.count, f.countErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	l *fakeListingsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo(), l: &fakeListingsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Listings(dbx.DBTX) listings.Repository           { return m.l }

type fakeBlobs struct {
	mu        sync.Mutex
	deleted   []string
	putErr    error
	getErr    error
	deleteErr error
}

func (f *fakeBlobs) PresignPut(_ context.Context, userID, contentType string) (string, string, error) {
	if f.putErr != nil {
		return "", "", f.putErr
	}
	return "listings/" + userID + "/k", "https://s3.test/put?ct=" + contentType, nil
}

func (f *fakeBlobs) PresignGet(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return "https://s3.test/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
	return f.deleteErr
}
