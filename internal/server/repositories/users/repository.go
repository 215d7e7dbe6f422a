package users

import (
	"context"

	"github.com/willnicht/willnicht/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// Lock takes a row lock on the user for the rest of the transaction.
	Lock(ctx context.Context, id string) error
}
