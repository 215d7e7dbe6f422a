package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/dbx"
	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/server/config"
	"github.com/willnicht/willnicht/internal/server/models"
	"github.com/willnicht/willnicht/internal/server/repositories/repomanager"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	defaultCurrency = "EUR"
)

// BlobStore is the object storage behind listing images.
type BlobStore interface {
	PresignPut(ctx context.Context, userID, contentType string) (key, url string, err error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

type ListingService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	blobs        BlobStore
	monthlyQuota int
	logger       logging.Logger
	now          func() time.Time
}

func NewListingService(db *sql.DB, m repomanager.RepositoryManager, blobs BlobStore, cfg *config.Config, logger logging.Logger) *ListingService {
	return &ListingService{
		db:           db,
		repomanager:  m,
		blobs:        blobs,
		monthlyQuota: cfg.MonthlyQuota,
		logger:       logger.With("module", "listings"),
		now:          time.Now,
	}
}

// monthStart is the first instant of the current UTC month.
func (s *ListingService) monthStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Create stores l for userID. The quota is checked again under a row lock on
// the user so that concurrent inserts cannot overshoot it.
func (s *ListingService) Create(ctx context.Context, userID string, l *models.Listing) (*models.Listing, error) {
	l.Title = strings.TrimSpace(l.Title)
	if l.Title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidListing)
	}
	if l.PriceMin < 0 || l.PriceMax < 0 || l.RecommendedPrice < 0 {
		return nil, fmt.Errorf("%w: negative price", ErrInvalidListing)
	}
	if l.ImageKey != "" && !OwnsKey(userID, l.ImageKey) {
		return nil, ErrInvalidImageKey
	}
	if l.Currency == "" {
		l.Currency = defaultCurrency
	}
	l.UserID = userID

	var created *models.Listing
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Lock(ctx, userID); err != nil {
			return err
		}
		n, err := s.repomanager.Listings(tx).CountSince(ctx, userID, s.monthStart())
		if err != nil {
			return err
		}
		if n >= s.monthlyQuota {
			return common.ErrorQuotaExceeded
		}
		created, err = s.repomanager.Listings(tx).Create(ctx, l)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.withImageURL(ctx, created)
	return created, nil
}

// List returns one page of the user's listings, newest first. A limit
// outside 1..MaxPageSize falls back to DefaultPageSize.
func (s *ListingService) List(ctx context.Context, userID string, limit, offset int) ([]*models.Listing, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.repomanager.Listings(s.db).List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, l := range items {
		s.withImageURL(ctx, l)
	}
	return items, nil
}

func (s *ListingService) Get(ctx context.Context, userID, id string) (*models.Listing, error) {
	l, err := s.repomanager.Listings(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.withImageURL(ctx, l)
	return l, nil
}

// Delete removes the listing. Its image goes too, but a failure there
// only gets logged.
func (s *ListingService) Delete(ctx context.Context, userID, id string) error {
	key, err := s.repomanager.Listings(s.db).Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if key != "" {
		s.deleteBlobs(ctx, key)
	}
	return nil
}

func (s *ListingService) DeleteAll(ctx context.Context, userID string) error {
	keys, err := s.repomanager.Listings(s.db).DeleteAll(ctx, userID)
	if err != nil {
		return err
	}
	s.deleteBlobs(ctx, keys...)
	return nil
}

// Quota reports this month's usage of userID.
func (s *ListingService) Quota(ctx context.Context, userID string) (*models.Quota, error) {
	n, err := s.repomanager.Listings(s.db).CountSince(ctx, userID, s.monthStart())
	if err != nil {
		return nil, err
	}
	return &models.Quota{Count: n, Limit: s.monthlyQuota, CanCreate: n < s.monthlyQuota}, nil
}

// UploadSlot hands out a key and a presigned PUT URL for one image.
func (s *ListingService) UploadSlot(ctx context.Context, userID, contentType string) (string, string, error) {
	return s.blobs.PresignPut(ctx, userID, contentType)
}

func (s *ListingService) withImageURL(ctx context.Context, l *models.Listing) {
	if l.ImageKey == "" {
		return
	}
	url, err := s.blobs.PresignGet(ctx, l.ImageKey)
	if err != nil {
		s.logger.Warn(ctx, "presign image url", "listing_id", l.ID, "err", err)
		return
	}
	l.ImageURL = url
}

func (s *ListingService) deleteBlobs(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.blobs.Delete(ctx, keys...); err != nil {
		s.logger.Warn(ctx, "delete images", "count", len(keys), "err", err)
	}
}
