package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrAdminShutdown        = "57P01"
	pgErrCannotConnectNow     = "57P03"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgErrUniqueViolation
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgErrForeignKeyViolation
}

// IsTransient reports whether retrying the whole operation may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	code := pgCode(err)
	switch {
	case code == pgErrSerializationFailure, code == pgErrDeadlockDetected,
		code == pgErrAdminShutdown, code == pgErrCannotConnectNow:
		return true
	case strings.HasPrefix(code, "08"):
		return true
	}
	return false
}

// Classify wraps a raw driver error so that callers can match it against the
// common taxonomy while the original stays available via errors.As.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrNotFound
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", common.ErrConflict, err)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", common.ErrNotFound, err)
	case IsTransient(err):
		return fmt.Errorf("%w: %w", common.ErrTransientStore, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
