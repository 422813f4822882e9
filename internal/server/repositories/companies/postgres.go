package companies

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Company) (*models.Company, error) {
	query :=
		`INSERT INTO companies (name, master_user_id)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, c.Name, c.MasterUserID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}

	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT id, name, master_user_id, created_at FROM companies WHERE id = $1`

	c := &models.Company{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.MasterUserID, &c.CreatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}

	return c, nil
}

func (r *PostgresRepository) Assign(ctx context.Context, a *models.Assignment) error {
	query :=
		`INSERT INTO company_users (company_id, user_id, access_level)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, a.CompanyID, a.UserID, int(a.AccessLevel)).Scan(&a.CreatedAt)
	if err != nil {
		return dbx.Classify(err)
	}

	return nil
}

func (r *PostgresRepository) GetAssignment(ctx context.Context, companyID, userID string) (*models.Assignment, error) {
	query :=
		`SELECT company_id, user_id, access_level, created_at FROM company_users
		 WHERE company_id = $1 AND user_id = $2
		 `

	a := &models.Assignment{}
	var level int
	err := r.db.QueryRowContext(ctx, query, companyID, userID).Scan(&a.CompanyID, &a.UserID, &level, &a.CreatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	a.AccessLevel = models.AccessLevel(level)

	return a, nil
}

func (r *PostgresRepository) ListMemberships(ctx context.Context, userID string) ([]*models.Assignment, error) {
	query :=
		`SELECT company_id, user_id, access_level, created_at FROM company_users
		 WHERE user_id = $1
		 ORDER BY created_at, company_id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []*models.Assignment
	for rows.Next() {
		a := &models.Assignment{}
		var level int
		if err := rows.Scan(&a.CompanyID, &a.UserID, &level, &a.CreatedAt); err != nil {
			return nil, dbx.Classify(err)
		}
		a.AccessLevel = models.AccessLevel(level)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}

	return result, nil
}

func (r *PostgresRepository) FirstMembership(ctx context.Context, userID string) (*models.MasterContext, error) {
	query :=
		`SELECT c.master_user_id, c.id
		 FROM company_users cu
		 JOIN companies c ON c.id = cu.company_id
		 WHERE cu.user_id = $1
		 ORDER BY cu.created_at, cu.company_id
		 LIMIT 1
		 `
	return r.scanContext(ctx, query, userID)
}

func (r *PostgresRepository) FirstOwned(ctx context.Context, userID string) (*models.MasterContext, error) {
	query :=
		`SELECT master_user_id, id
		 FROM companies
		 WHERE master_user_id = $1
		 ORDER BY created_at, id
		 LIMIT 1
		 `
	return r.scanContext(ctx, query, userID)
}

func (r *PostgresRepository) scanContext(ctx context.Context, query, userID string) (*models.MasterContext, error) {
	mc := &models.MasterContext{}
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&mc.MasterUserID, &mc.CompanyID); err != nil {
		return nil, dbx.Classify(err)
	}
	return mc, nil
}
