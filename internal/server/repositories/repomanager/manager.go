package repomanager

import (
	"context"
	"database/sql"

	"github.com/willnicht/willnicht/internal/dbx"
	"github.com/willnicht/willnicht/internal/server/repositories/listings"
	"github.com/willnicht/willnicht/internal/server/repositories/refreshtokens"
	"github.com/willnicht/willnicht/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or a
// running transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Listings(db dbx.DBTX) listings.Repository
}
