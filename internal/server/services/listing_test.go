package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/logging"
	"github.com/willnicht/willnicht/internal/server/config"
	"github.com/willnicht/willnicht/internal/server/models"
)

var fixedNow = time.Date(2025, 5, 17, 15, 4, 5, 0, time.FixedZone("CEST", 2*60*60))

func newListingService(t *testing.T) (*ListingService, *fakeRepoManager, *fakeBlobs, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	blobs := &fakeBlobs{}
	s := NewListingService(db, rm, blobs, &config.Config{MonthlyQuota: 3}, logging.Discard())
	s.now = func() time.Time { return fixedNow }
	return s, rm, blobs, mock
}

func TestListingCreate_Success(t *testing.T) {
	s, rm, _, mock := newListingService(t)
	rm.l.count = 2
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := s.Create(context.Background(), "u1", &models.Listing{
		Title:    "  Vase ",
		PriceMin: 10, PriceMax: 20, RecommendedPrice: 15,
		ImageKey: "listings/u1/2025/05/17/abc",
	})
	require.NoError(t, err)
	require.Equal(t, "Vase", got.Title)
	require.Equal(t, "EUR", got.Currency)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, "https://s3.test/listings/u1/2025/05/17/abc", got.ImageURL)
	require.Equal(t, []string{"u1"}, rm.u.locked)
	require.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), rm.l.since)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingCreate_QuotaExceeded(t *testing.T) {
	s, rm, _, mock := newListingService(t)
	rm.l.count = 3
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), "u1", &models.Listing{Title: "Vase"})
	require.ErrorIs(t, err, common.ErrorQuotaExceeded)
	require.Empty(t, rm.l.items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingCreate_Validation(t *testing.T) {
	s, _, _, _ := newListingService(t)

	_, err := s.Create(context.Background(), "u1", &models.Listing{Title: "   "})
	require.ErrorIs(t, err, ErrInvalidListing)

	_, err = s.Create(context.Background(), "u1", &models.Listing{Title: "Vase", PriceMin: -1})
	require.ErrorIs(t, err, ErrInvalidListing)

	_, err = s.Create(context.Background(), "u1", &models.Listing{Title: "Vase", ImageKey: "listings/u2/x"})
	require.ErrorIs(t, err, ErrInvalidImageKey)

	_, err = s.Create(context.Background(), "u1", &models.Listing{Title: "Vase", ImageKey: "listings/u10/x"})
	require.ErrorIs(t, err, ErrInvalidImageKey)
}

func TestListingCreate_PresignFailureKeepsListing(t *testing.T) {
	s, rm, blobs, mock := newListingService(t)
	blobs.getErr = errBoom
	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := s.Create(context.Background(), "u1", &models.Listing{Title: "Vase", ImageKey: "listings/u1/k"})
	require.NoError(t, err)
	require.Empty(t, got.ImageURL)
	require.Len(t, rm.l.items, 1)
}

func TestListingList_PageSize(t *testing.T) {
	s, rm, _, _ := newListingService(t)
	rm.l.items = []*models.Listing{
		{ID: "b", UserID: "u1", Title: "B", ImageKey: "listings/u1/b"},
		{ID: "x", UserID: "u2", Title: "X"},
		{ID: "a", UserID: "u1", Title: "A"},
	}

	got, err := s.List(context.Background(), "u1", 0, -5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].ID)
	require.Equal(t, "https://s3.test/listings/u1/b", got[0].ImageURL)
	require.Empty(t, got[1].ImageURL)
	require.Equal(t, DefaultPageSize, rm.l.lastLimit)
	require.Equal(t, 0, rm.l.lastOff)

	_, err = s.List(context.Background(), "u1", MaxPageSize+1, 10)
	require.NoError(t, err)
	require.Equal(t, DefaultPageSize, rm.l.lastLimit)
	require.Equal(t, 10, rm.l.lastOff)

	_, err = s.List(context.Background(), "u1", 5, 0)
	require.NoError(t, err)
	require.Equal(t, 5, rm.l.lastLimit)

	rm.l.listErr = errBoom
	_, err = s.List(context.Background(), "u1", 5, 0)
	require.ErrorIs(t, err, errBoom)
}

func TestListingGet_ScopedByUser(t *testing.T) {
	s, rm, _, _ := newListingService(t)
	rm.l.items = []*models.Listing{{ID: "a", UserID: "u1", Title: "A"}}

	got, err := s.Get(context.Background(), "u1", "a")
	require.NoError(t, err)
	require.Equal(t, "A", got.Title)

	_, err = s.Get(context.Background(), "u2", "a")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListingDelete_RemovesImage(t *testing.T) {
	s, rm, blobs, _ := newListingService(t)
	rm.l.items = []*models.Listing{
		{ID: "a", UserID: "u1", ImageKey: "listings/u1/a"},
		{ID: "b", UserID: "u1"},
	}

	require.NoError(t, s.Delete(context.Background(), "u1", "a"))
	require.NoError(t, s.Delete(context.Background(), "u1", "b"))
	require.Equal(t, []string{"listings/u1/a"}, blobs.deleted)

	require.ErrorIs(t, s.Delete(context.Background(), "u1", "a"), common.ErrorNotFound)
}

func TestListingDelete_BlobFailureIsNotAnError(t *testing.T) {
	s, rm, blobs, _ := newListingService(t)
	blobs.deleteErr = errBoom
	rm.l.items = []*models.Listing{{ID: "a", UserID: "u1", ImageKey: "listings/u1/a"}}

	require.NoError(t, s.Delete(context.Background(), "u1", "a"))
	require.Empty(t, rm.l.items)
}

func TestListingDeleteAll(t *testing.T) {
	s, rm, blobs, _ := newListingService(t)
	rm.l.items = []*models.Listing{
		{ID: "a", UserID: "u1", ImageKey: "listings/u1/a"},
		{ID: "x", UserID: "u2", ImageKey: "listings/u2/x"},
		{ID: "b", UserID: "u1"},
	}

	require.NoError(t, s.DeleteAll(context.Background(), "u1"))
	require.Equal(t, []string{"listings/u1/a"}, blobs.deleted)
	require.Len(t, rm.l.items, 1)
	require.Equal(t, "x", rm.l.items[0].ID)
}

func TestListingQuota(t *testing.T) {
	s, rm, _, _ := newListingService(t)

	rm.l.count = 2
	q, err := s.Quota(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, &models.Quota{Count: 2, Limit: 3, CanCreate: true}, q)

	rm.l.count = 3
	q, err = s.Quota(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, q.CanCreate)

	rm.l.countErr = errBoom
	_, err = s.Quota(context.Background(), "u1")
	require.ErrorIs(t, err, errBoom)
}

func TestMonthStart_UsesUTC(t *testing.T) {
	s, _, _, _ := newListingService(t)
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 1, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	}
	require.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), s.monthStart())
}

func TestUploadSlot(t *testing.T) {
	s, _, blobs, _ := newListingService(t)

	key, url, err := s.UploadSlot(context.Background(), "u1", "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "listings/u1/k", key)
	require.Contains(t, url, "image/jpeg")

	blobs.putErr = ErrUnsupportedContentType
	_, _, err = s.UploadSlot(context.Background(), "u1", "text/plain")
	require.ErrorIs(t, err, ErrUnsupportedContentType)
}
