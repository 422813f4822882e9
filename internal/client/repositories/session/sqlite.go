package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context) (*models.Session, error) {
	var (
		s       models.Session
		savedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, master_user_id, company_id, email, access_token, saved_at
		FROM session WHERE id = 1
	`).Scan(&s.UserID, &s.MasterUserID, &s.CompanyID, &s.Email, &s.AccessToken, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.SavedAt = time.Unix(0, savedAt).UTC()
	return &s, nil
}

// Save replaces the stored session. A zero SavedAt is stamped with the
// current time.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session (id, user_id, master_user_id, company_id, email, access_token, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			master_user_id = excluded.master_user_id,
			company_id = excluded.company_id,
			email = excluded.email,
			access_token = excluded.access_token,
			saved_at = excluded.saved_at
	`, s.UserID, s.MasterUserID, s.CompanyID, s.Email, s.AccessToken, s.SavedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
