// Package companies stores tenants and their member assignments.
package companies

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Company) (*models.Company, error)
	GetByID(ctx context.Context, id string) (*models.Company, error)
	// Assign inserts a membership. An existing (company, user) pair yields
	// common.ErrConflict; an unknown company or user yields common.ErrNotFound.
	Assign(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, companyID, userID string) (*models.Assignment, error)
	ListMemberships(ctx context.Context, userID string) ([]*models.Assignment, error)
	// FirstMembership returns the company of the user's earliest assignment,
	// ties broken by company id.
	FirstMembership(ctx context.Context, userID string) (*models.MasterContext, error)
	// FirstOwned returns the earliest company the user owns as master.
	FirstOwned(ctx context.Context, userID string) (*models.MasterContext, error)
}
