package profiles

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

const columns = `user_id, email, first_name, last_name, phone, birth_date, national_id, country, description, deleted`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the profile. A live profile with the same email yields
// common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) error {
	query :=
		`INSERT INTO user_profiles (user_id, email, first_name, last_name, phone, birth_date, national_id, country, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 `

	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Email, p.FirstName, p.LastName, p.Phone, nullTime(p), p.NationalID, p.Country, p.Description)
	if err != nil {
		return dbx.Classify(err)
	}

	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + columns + ` FROM user_profiles WHERE user_id = $1`
	return scanOne(r.db.QueryRowContext(ctx, query, userID))
}

// GetByEmail matches case-insensitively and skips deleted profiles.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + columns + ` FROM user_profiles WHERE lower(email) = lower($1) AND NOT deleted`
	return scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Profile) error {
	query :=
		`UPDATE user_profiles
		 SET email = $2, first_name = $3, last_name = $4, phone = $5, birth_date = $6,
		     national_id = $7, country = $8, description = $9
		 WHERE user_id = $1 AND NOT deleted
		 `

	res, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Email, p.FirstName, p.LastName, p.Phone, nullTime(p), p.NationalID, p.Country, p.Description)
	if err != nil {
		return dbx.Classify(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID string) error {
	query :=
		`UPDATE user_profiles SET deleted = TRUE
		 WHERE user_id = $1 AND NOT deleted
		 `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return dbx.Classify(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ListByMaster(ctx context.Context, masterUserID, companyID string) ([]*models.Profile, error) {
	query :=
		`SELECT DISTINCT p.user_id, p.email, p.first_name, p.last_name, p.phone, p.birth_date,
		        p.national_id, p.country, p.description, p.deleted
		 FROM user_profiles p
		 JOIN company_users cu ON cu.user_id = p.user_id
		 JOIN companies c ON c.id = cu.company_id
		 WHERE c.master_user_id = $1 AND NOT p.deleted
		 ORDER BY p.email
		 `
	args := []any{masterUserID}

	if companyID != "" {
		query =
			`SELECT p.user_id, p.email, p.first_name, p.last_name, p.phone, p.birth_date,
			        p.national_id, p.country, p.description, p.deleted
			 FROM user_profiles p
			 JOIN company_users cu ON cu.user_id = p.user_id
			 JOIN companies c ON c.id = cu.company_id
			 WHERE c.master_user_id = $1 AND c.id = $2 AND NOT p.deleted
			 ORDER BY p.email
			 `
		args = append(args, companyID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []*models.Profile
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Profile, error) {
	p := &models.Profile{}
	var birth sql.NullTime
	err := s.Scan(&p.UserID, &p.Email, &p.FirstName, &p.LastName, &p.Phone, &birth,
		&p.NationalID, &p.Country, &p.Description, &p.Deleted)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	if birth.Valid {
		t := birth.Time
		p.BirthDate = &t
	}
	return p, nil
}

func scanOne(row *sql.Row) (*models.Profile, error) {
	return scan(row)
}

func nullTime(p *models.Profile) sql.NullTime {
	if p.BirthDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.BirthDate, Valid: true}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
