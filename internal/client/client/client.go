package client

import (
	"context"

	"github.com/willnicht/willnicht/internal/client/models"
)

type Client interface {
	Close() error

	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	RestoreSession(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context) error
	Session() *models.Session
	Subscribe(ctx context.Context) <-chan models.IdentityEvent
	Ping(ctx context.Context) error

	CreateListing(ctx context.Context, l *models.Listing) (*models.Listing, error)
	FetchListings(ctx context.Context, limit, offset int) ([]models.Listing, error)
	FetchListing(ctx context.Context, id string) (*models.Listing, error)
	DeleteListing(ctx context.Context, id string) error
	DeleteAllListings(ctx context.Context) error

	CheckQuota(ctx context.Context) (bool, error)
	EvaluationCount(ctx context.Context) (*models.Quota, error)
}
