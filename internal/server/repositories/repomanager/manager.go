package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/codes"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/companies"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/roles"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle, which is either
// the pool or a transaction obtained from dbx.Transactor.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Codes(db dbx.DBTX, purpose models.CodePurpose) codes.Repository
	Companies(db dbx.DBTX) companies.Repository
	Roles(db dbx.DBTX) roles.Repository
}
