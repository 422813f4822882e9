package models

import "time"

// CodePurpose selects the table a one-time code lives in.
type CodePurpose int

const (
	PurposeRegistration CodePurpose = iota
	PurposeRecovery
)

func (p CodePurpose) String() string {
	if p == PurposeRecovery {
		return "recovery"
	}
	return "registration"
}

// OneTimeCode is the single outstanding code of a user for one purpose.
type OneTimeCode struct {
	UserID     string
	Purpose    CodePurpose
	Code       string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Usable reports whether the code can still be consumed at now.
func (c *OneTimeCode) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
