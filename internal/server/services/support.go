package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/codegen"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/codes"
)

// passThrough lists the errors services hand to callers unchanged.
var passThrough = []error{
	common.ErrValidation,
	common.ErrDuplicateEmail,
	common.ErrDuplicateAssignment,
	common.ErrNoSuchUser,
	common.ErrNoSuchCompany,
	common.ErrWrongPassword,
	common.ErrInvalidOrExpiredCode,
	common.ErrCodeGenerationExhausted,
	common.ErrNotPending,
	common.ErrNotActive,
	common.ErrForbidden,
	common.ErrNotification,
	context.Canceled,
	context.DeadlineExceeded,
}

// sanitize keeps lifecycle errors and replaces everything else with an
// opaque taxonomy root. The original is logged.
func sanitize(ctx context.Context, l logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range passThrough {
		if errors.Is(err, target) {
			return err
		}
	}
	l.Error(ctx, op+" failed", "error", err)
	if errors.Is(err, common.ErrTransientStore) {
		return common.ErrTransientStore
	}
	return common.ErrInternal
}

// issueCode replaces the user's code inside the caller's transaction.
func issueCode(ctx context.Context, gen *codegen.Generator, repo codes.Repository, userID string, expiresAt time.Time) (string, error) {
	return gen.GenerateUniqueCode(ctx, func(ctx context.Context, code string) error {
		return repo.Issue(ctx, userID, code, expiresAt)
	})
}

// mailer sends post-commit notifications. A failed send is logged and
// returned wrapped in common.ErrNotification.
type mailer struct {
	notifier notify.Notifier
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func (m mailer) deliver(ctx context.Context, msg notify.Message) error {
	ack, err := m.notifier.Send(ctx, msg)
	m.metrics.Notification(err)
	if err != nil {
		m.logger.Error(ctx, "notification failed",
			"to", notify.RedactAddress(msg.To), "subject", msg.Subject, "error", err)
		return fmt.Errorf("%w: %w", common.ErrNotification, err)
	}
	m.logger.Debug(ctx, "notification sent", "ack", ack.ID, "subject", msg.Subject)
	return nil
}

func validityText(d time.Duration) string {
	if m := int(d.Minutes()); m > 0 && d%time.Minute == 0 {
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
