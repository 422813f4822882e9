package notify

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/google/uuid"
)

// LogNotifier records messages in the log instead of delivering them.
// Bodies are not logged since they carry one-time codes, so nothing sent
// through it can be acted upon. It acknowledges every message and is meant
// for development only.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify_log")}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) (Ack, error) {
	ack := Ack{ID: uuid.NewString()}
	n.logger.Info(ctx, "mail accepted",
		"id", ack.ID, "to", RedactAddress(msg.To), "subject", msg.Subject, "bytes", len(msg.HTML))
	return ack, nil
}
