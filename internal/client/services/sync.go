// Package services contains the application services of the Willnicht
// client: the result synchronizer, the evaluation flow and authentication.
package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/logging"
)

// State is where the most recent mutation ended up.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateDegraded   State = "degraded"
)

const DefaultPageSize = 50

var (
	ErrRemoteDisabled = errors.New("remote storage disabled")
	ErrResultNotFound = errors.New("result not found")
	ErrStaleLoad      = errors.New("load superseded")
)

// LocalStore is the durable backstop. It never fails loudly.
type LocalStore interface {
	Save(ctx context.Context, results []models.EvaluationResult)
	Load(ctx context.Context) []models.EvaluationResult
	Purge(ctx context.Context)
}

// RemoteStore is the part of the remote store adapter the synchronizer uses.
type RemoteStore interface {
	Session() *models.Session
	CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error)
	FetchListings(ctx context.Context, limit, offset int) ([]models.Listing, error)
	DeleteListing(ctx context.Context, id string) error
	DeleteAllListings(ctx context.Context) error
}

// ImageNormalizer shrinks a data URL image for the remote write.
type ImageNormalizer interface {
	NormalizeDataURL(dataURL string) ([]byte, error)
}

// Outcome reports a mutation. Remote holds the reason the remote tier was
// not written, if it was needed and was not.
type Outcome struct {
	State  State
	Remote error
}

// LoadOutcome reports a load. FromRemote is set when the remote snapshot
// replaced the local one.
type LoadOutcome struct {
	FromRemote bool
	Count      int
	Remote     error
}

type SyncOptions struct {
	RemoteEnabled bool
	PageSize      int
}

// Synchronizer owns the ordered result list (newest first) and keeps the
// local cache and the remote store in step with it. The local cache is
// always written; the remote store is written when it can be and its
// failures only degrade the outcome.
//
// The list is only ever replaced as a whole, under mu, and the local cache
// is saved under the same lock so that cache contents never go backwards.
type Synchronizer struct {
	local  LocalStore
	remote RemoteStore
	images ImageNormalizer
	logger logging.Logger
	opts   SyncOptions

	mu      sync.RWMutex
	results []models.EvaluationResult
	state   State

	generation atomic.Uint64
	writes     keyedMutex

	observerMu sync.RWMutex
	observer   func([]models.EvaluationResult)
}

func NewSynchronizer(local LocalStore, remote RemoteStore, images ImageNormalizer, logger logging.Logger, opts SyncOptions) *Synchronizer {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Synchronizer{
		local:   local,
		remote:  remote,
		images:  images,
		logger:  logger.With("module", "synchronizer"),
		opts:    opts,
		results: []models.EvaluationResult{},
		state:   StateIdle,
	}
}

// OnChange registers fn to receive every new snapshot of the list. Only one
// observer is kept.
func (s *Synchronizer) OnChange(fn func([]models.EvaluationResult)) {
	s.observerMu.Lock()
	s.observer = fn
	s.observerMu.Unlock()
}

func (s *Synchronizer) notify(snapshot []models.EvaluationResult) {
	s.observerMu.RLock()
	fn := s.observer
	s.observerMu.RUnlock()
	if fn != nil {
		fn(snapshot)
	}
}

func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Synchronizer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Synchronizer) finish(st State, remoteErr error) Outcome {
	s.setState(st)
	return Outcome{State: st, Remote: remoteErr}
}

// Results returns a copy of the list, newest first.
func (s *Synchronizer) Results() []models.EvaluationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.results)
}

// Latest returns the newest result.
func (s *Synchronizer) Latest() (models.EvaluationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.results) == 0 {
		return models.EvaluationResult{}, false
	}
	return s.results[0], true
}

// History returns every result but the newest.
func (s *Synchronizer) History() []models.EvaluationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.results) < 2 {
		return []models.EvaluationResult{}
	}
	return slices.Clone(s.results[1:])
}

// Find looks a result up by its local id or its remote id.
func (s *Synchronizer) Find(id string) (models.EvaluationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.results, id)
	if i < 0 {
		return models.EvaluationResult{}, false
	}
	return s.results[i], true
}

func indexOf(results []models.EvaluationResult, id string) int {
	return slices.IndexFunc(results, func(r models.EvaluationResult) bool {
		return r.ID == id || (r.RemoteID != "" && r.RemoteID == id)
	})
}

// replace swaps in next, persists it locally and notifies the observer.
func (s *Synchronizer) replace(ctx context.Context, next []models.EvaluationResult) {
	s.mu.Lock()
	s.results = next
	s.local.Save(ctx, next)
	snapshot := slices.Clone(next)
	s.mu.Unlock()

	s.notify(snapshot)
}

// mutate applies fn to the current list and replaces it with the result.
func (s *Synchronizer) mutate(ctx context.Context, fn func(cur []models.EvaluationResult) []models.EvaluationResult) {
	s.mu.Lock()
	next := fn(s.results)
	s.results = next
	s.local.Save(ctx, next)
	snapshot := slices.Clone(next)
	s.mu.Unlock()

	s.notify(snapshot)
}

// remoteSession returns the identity to write as, or the reason there is
// none.
func (s *Synchronizer) remoteSession() (*models.Session, error) {
	if !s.opts.RemoteEnabled || s.remote == nil {
		return nil, ErrRemoteDisabled
	}
	sess := s.remote.Session()
	if sess == nil {
		return nil, client.ErrNotSignedIn
	}
	return sess, nil
}

// Create puts a new batch in front of the list in batch order, so the last
// item of the batch becomes the newest, and saves the local cache. Then it
// makes one remote write of the newest result. Remote problems are logged
// and reported in the outcome; they never undo the local write.
func (s *Synchronizer) Create(ctx context.Context, batch []models.EvaluationResult) Outcome {
	if len(batch) == 0 {
		return Outcome{State: s.State()}
	}
	s.setState(StateSubmitting)
	s.generation.Add(1)

	s.mutate(ctx, func(cur []models.EvaluationResult) []models.EvaluationResult {
		next := make([]models.EvaluationResult, 0, len(batch)+len(cur))
		for i := len(batch) - 1; i >= 0; i-- {
			next = append(next, batch[i])
		}
		return append(next, cur...)
	})

	newest := batch[len(batch)-1]
	if newest.Demo {
		s.logger.Debug(ctx, "demo result kept local", "result_id", newest.ID)
		return s.finish(StateSucceeded, nil)
	}

	sess, err := s.remoteSession()
	if err != nil {
		s.logger.Info(ctx, "remote write skipped", "result_id", newest.ID, "reason", err)
		return s.finish(StateDegraded, err)
	}

	var image []byte
	if newest.Image != "" && s.images != nil {
		image, err = s.images.NormalizeDataURL(newest.Image)
		if err != nil {
			s.logger.Warn(ctx, "image normalization failed, remote write skipped", "result_id", newest.ID, "err", err)
			return s.finish(StateDegraded, err)
		}
	}

	unlock := s.writes.lock(sess.UserID)
	created, err := s.remote.CreateListing(ctx, models.ListingFromResult(newest, image))
	unlock()
	if err != nil {
		s.logger.Warn(ctx, "remote write failed", "result_id", newest.ID, "err", err)
		return s.finish(StateDegraded, err)
	}

	s.mutate(ctx, func(cur []models.EvaluationResult) []models.EvaluationResult {
		next := slices.Clone(cur)
		for i := range next {
			if next[i].ID == newest.ID {
				next[i].RemoteID = created.ID
			}
		}
		return next
	})

	s.logger.Info(ctx, "result synced", "result_id", newest.ID, "remote_id", created.ID)
	return s.finish(StateSucceeded, nil)
}

// Load shows the local snapshot first and then, if the remote store is
// usable, replaces everything with the remote snapshot. A remote answer that
// arrives after a newer load or mutation started is dropped.
func (s *Synchronizer) Load(ctx context.Context) LoadOutcome {
	gen := s.generation.Add(1)

	s.mu.Lock()
	local := s.local.Load(ctx)
	s.results = local
	snapshot := slices.Clone(local)
	s.mu.Unlock()
	s.notify(snapshot)

	if _, err := s.remoteSession(); err != nil {
		return LoadOutcome{Count: len(local), Remote: err}
	}

	listings, err := s.remote.FetchListings(ctx, s.opts.PageSize, 0)
	if err != nil {
		s.logger.Warn(ctx, "remote fetch failed, keeping local results", "count", len(local), "err", err)
		return LoadOutcome{Count: len(local), Remote: err}
	}

	next := make([]models.EvaluationResult, 0, len(listings))
	for _, l := range listings {
		next = append(next, l.ToResult())
	}

	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		s.logger.Debug(ctx, "stale remote snapshot dropped", "count", len(next))
		return LoadOutcome{Count: len(local), Remote: ErrStaleLoad}
	}
	s.results = next
	s.local.Save(ctx, next)
	snapshot = slices.Clone(next)
	s.mu.Unlock()
	s.notify(snapshot)

	s.logger.Info(ctx, "results loaded from remote", "count", len(next))
	return LoadOutcome{FromRemote: true, Count: len(next)}
}

// Delete removes one result. The remote record is deleted first when the
// result has one; the local removal happens whatever the remote outcome.
func (s *Synchronizer) Delete(ctx context.Context, id string) (Outcome, error) {
	target, ok := s.Find(id)
	if !ok {
		return Outcome{State: s.State()}, ErrResultNotFound
	}
	s.setState(StateSubmitting)
	s.generation.Add(1)

	st, remoteErr := StateSucceeded, error(nil)
	if target.RemoteID != "" {
		sess, err := s.remoteSession()
		if err == nil {
			unlock := s.writes.lock(sess.UserID)
			err = s.remote.DeleteListing(ctx, target.RemoteID)
			unlock()
		}
		if err != nil {
			s.logger.Warn(ctx, "remote delete failed", "result_id", target.ID, "remote_id", target.RemoteID, "err", err)
			st, remoteErr = StateDegraded, err
		}
	}

	s.mutate(ctx, func(cur []models.EvaluationResult) []models.EvaluationResult {
		return slices.DeleteFunc(slices.Clone(cur), func(r models.EvaluationResult) bool {
			return r.ID == target.ID
		})
	})

	return s.finish(st, remoteErr), nil
}

// Clear removes every result. The remote bulk delete is best effort.
func (s *Synchronizer) Clear(ctx context.Context) Outcome {
	s.setState(StateSubmitting)
	s.generation.Add(1)

	st, remoteErr := StateSucceeded, error(nil)
	sess, err := s.remoteSession()
	if err == nil {
		unlock := s.writes.lock(sess.UserID)
		err = s.remote.DeleteAllListings(ctx)
		unlock()
	}
	if err != nil {
		s.logger.Warn(ctx, "remote clear failed", "err", err)
		st, remoteErr = StateDegraded, err
	}

	s.replace(ctx, []models.EvaluationResult{})
	return s.finish(st, remoteErr)
}

// Reset forgets every result locally without touching the remote store.
// It is the reaction to a sign-out.
func (s *Synchronizer) Reset(ctx context.Context) {
	s.generation.Add(1)

	s.mu.Lock()
	s.results = []models.EvaluationResult{}
	s.state = StateIdle
	s.local.Purge(ctx)
	s.mu.Unlock()

	s.notify([]models.EvaluationResult{})
}

// WatchIdentity reacts to identity events until ctx is done or events is
// closed: sign-in and session restore trigger Load, sign-out triggers Reset.
func (s *Synchronizer) WatchIdentity(ctx context.Context, events <-chan models.IdentityEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case models.SignedIn, models.SessionRestored:
				s.Load(ctx)
			case models.SignedOut:
				s.Reset(ctx)
			}
		}
	}
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
