// Package users stores the identity anchor of every account: the user row
// with its password hash and salt.
package users

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetPassword(ctx context.Context, id string, hash, salt []byte) error
	// SetInitialPassword writes credentials only while the user has none.
	SetInitialPassword(ctx context.Context, id string, hash, salt []byte) error
}
