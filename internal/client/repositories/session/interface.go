// Package session stores the single logged-in CLI session in SQLite.
package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no saved session")

type Repository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}
