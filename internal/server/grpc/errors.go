package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC statuses. Messages stay generic so
// callers cannot tell accounts apart; only validation reasons are echoed.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrInvalidOrExpiredCode):
		return status.Error(codes.NotFound, "invalid code")
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, common.ErrDuplicateAssignment):
		return status.Error(codes.AlreadyExists, "user already assigned to company")
	case errors.Is(err, common.ErrNotPending), errors.Is(err, common.ErrNotActive), errors.Is(err, common.ErrPasswordAlreadySet):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, "conflict")
	case errors.Is(err, common.ErrTransientStore):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	}
	return status.Error(codes.Internal, "internal error")
}

// authStatus hides whether a login failed on the email or the password.
func authStatus(err error) error {
	if common.IsAuthFailure(err) {
		return status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return toStatus(err)
}

// notified splits a service error into the delivery flag and a real failure.
// A failed notification follows a committed mutation, so the call succeeds.
func notified(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotification):
		return false, nil
	}
	return false, err
}
