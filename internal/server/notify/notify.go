// Package notify delivers lifecycle emails: registration codes, recovery
// codes, welcome and password-changed notices.
//
// Notifiers are called only after the triggering mutation has committed.
// Their errors never roll anything back; the caller reports them.
package notify

import (
	"context"
	"strings"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Ack identifies an accepted message.
type Ack struct {
	ID string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) (Ack, error)
}

// RedactAddress keeps only the domain of an address for log output.
func RedactAddress(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return "***" + addr[i:]
	}
	return "***"
}
