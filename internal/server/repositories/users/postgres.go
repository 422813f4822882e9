package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a user without a usable password.
func (r *PostgresRepository) Create(ctx context.Context) (*models.User, error) {
	query :=
		`INSERT INTO users DEFAULT VALUES
		 RETURNING id, created_at, updated_at
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, password_hash, password_salt, created_at, updated_at FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.PasswordHash, &user.PasswordSalt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}

	return user, nil
}

// SetPassword stores a new hash and salt. Both are written by one statement
// so a failed call leaves the previous credentials untouched.
func (r *PostgresRepository) SetPassword(ctx context.Context, id string, hash, salt []byte) error {
	query :=
		`UPDATE users SET password_hash = $2, password_salt = $3, updated_at = now()
		 WHERE id = $1
		 `

	return r.update(ctx, query, id, hash, salt)
}

// SetInitialPassword is SetPassword restricted to users without a password.
// A user that already has one reports ErrNotFound like a missing user.
func (r *PostgresRepository) SetInitialPassword(ctx context.Context, id string, hash, salt []byte) error {
	query :=
		`UPDATE users SET password_hash = $2, password_salt = $3, updated_at = now()
		 WHERE id = $1 AND password_hash IS NULL
		 `

	return r.update(ctx, query, id, hash, salt)
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbx.Classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	return nil
}
