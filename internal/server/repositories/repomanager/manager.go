package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so services can compose several of them under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	Favorites(db dbx.DBTX) favorites.Repository
}
