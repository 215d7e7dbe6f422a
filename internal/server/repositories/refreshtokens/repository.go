// Package refreshtokens stores the opaque refresh tokens the backend hands
// out next to short-lived access tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/willnicht/willnicht/internal/server/models"
)

type Repository interface {
	// Create stores token for userID, valid until now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is unknown.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete consumes a token. A token that is already gone yields
	// common.ErrorNotFound, so two racing refreshes cannot both rotate it.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
