// Package listings persists the evaluations users keep on the backend.
package listings

import (
	"context"
	"time"

	"github.com/willnicht/willnicht/internal/server/models"
)

// Repository scopes every read and write to one user. A listing that
// belongs to somebody else behaves exactly like a missing one.
type Repository interface {
	Create(ctx context.Context, l *models.Listing) (*models.Listing, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*models.Listing, error)
	Get(ctx context.Context, userID, id string) (*models.Listing, error)
	// Delete returns the image key of the removed listing.
	Delete(ctx context.Context, userID, id string) (string, error)
	// DeleteAll returns the non-empty image keys of the removed listings.
	DeleteAll(ctx context.Context, userID string) ([]string, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}
