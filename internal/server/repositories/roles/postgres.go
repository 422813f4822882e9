package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Seed relies on the (master_user_id, access_level) unique key, so
// concurrent or repeated calls never duplicate a role.
func (r *PostgresRepository) Seed(ctx context.Context, masterUserID string, levels []models.AccessLevel) (int64, error) {
	if len(levels) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(levels))
	args := make([]any, 0, 1+2*len(levels))
	args = append(args, masterUserID)
	for i, l := range levels {
		values = append(values, fmt.Sprintf("($1, $%d, $%d)", 2+2*i, 3+2*i))
		args = append(args, l.String(), int(l))
	}

	query := `INSERT INTO roles (master_user_id, name, access_level) VALUES ` +
		strings.Join(values, ", ") +
		` ON CONFLICT (master_user_id, access_level) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbx.Classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

func (r *PostgresRepository) ListByMaster(ctx context.Context, masterUserID string) ([]*models.Role, error) {
	query :=
		`SELECT id, master_user_id, name, access_level FROM roles
		 WHERE master_user_id = $1
		 ORDER BY access_level DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, masterUserID)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	defer rows.Close()

	var result []*models.Role
	for rows.Next() {
		role := &models.Role{}
		var level int
		if err := rows.Scan(&role.ID, &role.MasterUserID, &role.Name, &level); err != nil {
			return nil, dbx.Classify(err)
		}
		role.AccessLevel = models.AccessLevel(level)
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Classify(err)
	}

	return result, nil
}
