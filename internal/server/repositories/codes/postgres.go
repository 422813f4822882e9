package codes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type queries struct {
	delete  string
	insert  string
	consume string
	get     string
}

var byPurpose = map[models.CodePurpose]queries{
	models.PurposeRegistration: {
		delete: `DELETE FROM registration_codes WHERE user_id = $1`,
		insert: `INSERT INTO registration_codes (user_id, code, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING
		 RETURNING user_id`,
		consume: `UPDATE registration_codes SET consumed_at = $2
		 WHERE code = $1 AND consumed_at IS NULL AND expires_at > $2
		 RETURNING user_id`,
		get: `SELECT user_id, code, expires_at, consumed_at, created_at FROM registration_codes WHERE user_id = $1`,
	},
	models.PurposeRecovery: {
		delete: `DELETE FROM recovery_codes WHERE user_id = $1`,
		insert: `INSERT INTO recovery_codes (user_id, code, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING
		 RETURNING user_id`,
		consume: `UPDATE recovery_codes SET consumed_at = $2
		 WHERE code = $1 AND consumed_at IS NULL AND expires_at > $2
		 RETURNING user_id`,
		get: `SELECT user_id, code, expires_at, consumed_at, created_at FROM recovery_codes WHERE user_id = $1`,
	},
}

type PostgresRepository struct {
	db      dbx.DBTX
	purpose models.CodePurpose
	q       queries
}

func NewPostgresRepository(db dbx.DBTX, purpose models.CodePurpose) *PostgresRepository {
	return &PostgresRepository{db: db, purpose: purpose, q: byPurpose[purpose]}
}

// Issue deletes the previous code and inserts the new one. Run it inside a
// transaction so the swap is atomic. The insert skips any unique conflict
// instead of failing, which keeps the transaction usable for a retry.
func (r *PostgresRepository) Issue(ctx context.Context, userID, code string, expiresAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, r.q.delete, userID); err != nil {
		return dbx.Classify(err)
	}

	var owner string
	err := r.db.QueryRowContext(ctx, r.q.insert, userID, code, expiresAt).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s code already taken", common.ErrConflict, r.purpose)
		}
		return dbx.Classify(err)
	}

	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, code string, now time.Time) (string, error) {
	var userID string
	if err := r.db.QueryRowContext(ctx, r.q.consume, code, now).Scan(&userID); err != nil {
		return "", dbx.Classify(err)
	}
	return userID, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.OneTimeCode, error) {
	c := &models.OneTimeCode{Purpose: r.purpose}
	var consumed sql.NullTime

	err := r.db.QueryRowContext(ctx, r.q.get, userID).
		Scan(&c.UserID, &c.Code, &c.ExpiresAt, &consumed, &c.CreatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	if consumed.Valid {
		t := consumed.Time
		c.ConsumedAt = &t
	}

	return c, nil
}
