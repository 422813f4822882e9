package models

import "time"

// AccountState is the lifecycle position of a user account.
type AccountState int

const (
	StateUnregistered AccountState = iota
	StatePendingVerification
	StateActive
)

func (s AccountState) String() string {
	switch s {
	case StatePendingVerification:
		return "pending_verification"
	case StateActive:
		return "active"
	default:
		return "unregistered"
	}
}

// User is the identity anchor. PasswordHash and PasswordSalt stay nil until
// a password has been set.
type User struct {
	ID           string
	PasswordHash []byte
	PasswordSalt []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0 && len(u.PasswordSalt) > 0
}

// State derives the lifecycle state from the stored credentials.
func (u *User) State() AccountState {
	if u == nil {
		return StateUnregistered
	}
	if u.HasPassword() {
		return StateActive
	}
	return StatePendingVerification
}
