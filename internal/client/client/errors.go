package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("permission denied")
	ErrNotFound     = errors.New("not found")
	ErrExists       = errors.New("already exists")
	ErrRejected     = errors.New("request rejected")
	ErrThrottled    = errors.New("too many requests")
)
