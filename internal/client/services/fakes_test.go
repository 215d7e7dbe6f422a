package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willnicht/willnicht/internal/client/cache"
	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/client/repositories/metadata"
	"github.com/willnicht/willnicht/internal/logging"
)

// fakeClient implements client.Client for service tests. It records calls
// and returns preset errors.
type fakeClient struct {
	mu sync.Mutex

	session *models.Session

	SignUpErr  error
	SignInErr  error
	RestoreErr error
	SignOutErr error
	PingErr    error
	CloseErr   error

	CreateErr    error
	FetchErr     error
	DeleteErr    error
	DeleteAllErr error
	QuotaOK      bool
	QuotaErr     error

	// fetchGate, when set, blocks FetchListings until it is closed.
	fetchGate chan struct{}

	listings []models.Listing
	nextID   int

	Created      []*models.Listing
	Deleted      []string
	DeleteAlls   int
	Fetches      int
	QuotaChecks  int
	LastRestore  string
	LastPassword string
}

func newFakeClient() *fakeClient {
	return &fakeClient{QuotaOK: true}
}

func (f *fakeClient) signIn(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = &models.Session{UserID: userID, Email: userID + "@example.org", AccessToken: "a", RefreshToken: "r-" + userID}
}

func (f *fakeClient) Close() error { return f.CloseErr }

func (f *fakeClient) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	return f.start(email, password, f.SignUpErr)
}

func (f *fakeClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return f.start(email, password, f.SignInErr)
}

func (f *fakeClient) start(email, password string, err error) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastPassword = password
	if err != nil {
		return nil, err
	}
	f.session = &models.Session{UserID: "u-" + email, Email: email, AccessToken: "a", RefreshToken: "r-" + email}
	s := *f.session
	return &s, nil
}

func (f *fakeClient) RestoreSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastRestore = refreshToken
	if f.RestoreErr != nil {
		return nil, f.RestoreErr
	}
	f.session = &models.Session{UserID: "u1", Email: "restored@example.org", RefreshToken: refreshToken + "-rotated"}
	s := *f.session
	return &s, nil
}

func (f *fakeClient) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return f.SignOutErr
}

func (f *fakeClient) Session() *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	s := *f.session
	return &s
}

func (f *fakeClient) Subscribe(ctx context.Context) <-chan models.IdentityEvent {
	ch := make(chan models.IdentityEvent)
	close(ch)
	return ch
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.Created = append(f.Created, &cp)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.nextID++
	cp.ID = fmt.Sprintf("remote-%d", f.nextID)
	f.listings = append([]models.Listing{cp}, f.listings...)
	return &cp, nil
}

func (f *fakeClient) FetchListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	f.mu.Lock()
	f.Fetches++
	gate := f.fetchGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	end := min(offset+limit, len(f.listings))
	if offset > end {
		return []models.Listing{}, nil
	}
	return append([]models.Listing(nil), f.listings[offset:end]...), nil
}

func (f *fakeClient) FetchListing(ctx context.Context, id string) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.ID == id {
			cp := l
			return &cp, nil
		}
	}
	return nil, client.ErrNotFound
}

func (f *fakeClient) DeleteListing(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, id)
	return f.DeleteErr
}

func (f *fakeClient) DeleteAllListings(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteAlls++
	if f.DeleteAllErr == nil {
		f.listings = nil
	}
	return f.DeleteAllErr
}

func (f *fakeClient) CheckQuota(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QuotaChecks++
	return f.QuotaOK, f.QuotaErr
}

func (f *fakeClient) EvaluationCount(ctx context.Context) (*models.Quota, error) {
	return &models.Quota{CanCreate: f.QuotaOK}, f.QuotaErr
}

var _ client.Client = (*fakeClient)(nil)

// fakeNormalizer returns a fixed payload or error.
type fakeNormalizer struct {
	err   error
	calls int
}

func (n *fakeNormalizer) NormalizeDataURL(dataURL string) ([]byte, error) {
	n.calls++
	if n.err != nil {
		return nil, n.err
	}
	return []byte("jpeg:" + dataURL), nil
}

// newLocal opens a migrated in-memory database and returns its metadata
// repository and a cache over it.
func newLocal(t *testing.T) (metadata.Repository, *cache.Cache) {
	t.Helper()
	repos, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos.Metadata, cache.New(repos.Metadata, logging.Discard())
}
