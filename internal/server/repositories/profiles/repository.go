// Package profiles stores the contact data of users. The email column is
// the login handle and is unique among rows that are not soft-deleted.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	SoftDelete(ctx context.Context, userID string) error
	// ListByMaster returns live profiles of members of companies owned by
	// masterUserID. An empty companyID means every such company.
	ListByMaster(ctx context.Context, masterUserID, companyID string) ([]*models.Profile, error)
}
