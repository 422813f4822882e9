// Package roles stores the named access level templates of a master user.
package roles

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type Repository interface {
	// Seed inserts the given levels for masterUserID, skipping levels that
	// already exist, and reports how many rows were actually created.
	Seed(ctx context.Context, masterUserID string, levels []models.AccessLevel) (int64, error)
	ListByMaster(ctx context.Context, masterUserID string) ([]*models.Role, error)
}
