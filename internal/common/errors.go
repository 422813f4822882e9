// Package common defines the sentinel error taxonomy and small helpers shared
// by the server and client layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Taxonomy roots.
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTransientStore = errors.New("store temporarily unavailable")
	ErrNotification   = errors.New("notification failed")
	ErrInternal       = errors.New("internal error")

	// Identity lifecycle errors. Each one wraps a taxonomy root.
	ErrDuplicateEmail          = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrDuplicateAssignment     = fmt.Errorf("%w: user already assigned to company", ErrConflict)
	ErrNoSuchUser              = fmt.Errorf("%w: no such user", ErrNotFound)
	ErrNoSuchCompany           = fmt.Errorf("%w: no such company", ErrNotFound)
	ErrWrongPassword           = fmt.Errorf("%w: wrong password", ErrUnauthorized)
	ErrInvalidOrExpiredCode    = fmt.Errorf("%w: invalid or expired code", ErrNotFound)
	ErrCodeGenerationExhausted = fmt.Errorf("%w: unique code generation exhausted", ErrInternal)
	ErrNotPending              = fmt.Errorf("%w: account is not pending verification", ErrConflict)
	ErrNotActive               = fmt.Errorf("%w: account has no password yet", ErrConflict)
	ErrPasswordAlreadySet      = fmt.Errorf("%w: password already set", ErrConflict)
	ErrForbidden               = fmt.Errorf("%w: insufficient access level", ErrUnauthorized)

	// Token errors.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

// Validation wraps a human readable reason into ErrValidation.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// IsAuthFailure reports whether err should be shown to an untrusted caller as
// the single opaque "invalid credentials" signal.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrNoSuchUser) || errors.Is(err, ErrUnauthorized)
}
