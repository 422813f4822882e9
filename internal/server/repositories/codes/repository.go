// Package codes stores one-time registration and recovery codes. Each user
// holds at most one code per purpose; issuing a new one replaces the old.
package codes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type Repository interface {
	// Issue replaces the user's code. It returns common.ErrConflict when the
	// code is held by another user, so the caller can draw a new one.
	Issue(ctx context.Context, userID, code string, expiresAt time.Time) error
	// Consume marks code used in one conditional write and returns its
	// owner. Unknown, used and expired codes yield common.ErrNotFound.
	Consume(ctx context.Context, code string, now time.Time) (string, error)
	GetByUserID(ctx context.Context, userID string) (*models.OneTimeCode, error)
}
