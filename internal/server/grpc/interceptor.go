package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	userIDKey     ctxKey = "userID"
	setupTokenKey ctxKey = "setupToken"
)

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// fromSetupToken reports whether the caller authenticated with a setup token.
func fromSetupToken(ctx context.Context) bool {
	setup, _ := ctx.Value(setupTokenKey).(bool)
	return setup
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// requestIDInterceptor tags the context with the caller's request id, or a
// fresh ULID, and echoes it in the response header.
func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	id := firstMetadata(ctx, common.RequestIDHeaderName)
	if id == "" || len(id) > 64 {
		id = ulid.Make().String()
	}

	// fails only outside a real transport stream
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))

	return handler(logging.ContextWithAttrs(ctx, "request_id", id), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
	switch code {
	case codes.OK:
		s.logger.Info(ctx, "rpc finished", args...)
	case codes.Internal, codes.Unavailable, codes.Unknown:
		s.logger.Error(ctx, "rpc failed", append(args, "error", err)...)
	default:
		s.logger.Warn(ctx, "rpc rejected", append(args, "error", err)...)
	}

	return resp, err
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	done := s.metrics.RPCStarted(info.FullMethod)
	resp, err := handler(ctx, req)
	done(status.Code(err).String())

	return resp, err
}

// rateLimitInterceptor throttles unauthenticated methods per peer address.
func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if publicMethods[info.FullMethod] && s.limiter != nil && !s.limiter.allow(peerKey(ctx)) {
		s.metrics.RateLimited(info.FullMethod)
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}

	return handler(ctx, req)
}

// accessTokenInterceptor requires an access token on every method that is
// not public. Setup methods also take the setup token.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, toStatus(err)
	}

	switch {
	case claims.Purpose == auth.PurposeAccess:
	case claims.Purpose == auth.PurposeSetup && setupMethods[info.FullMethod]:
	default:
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	if claims.Purpose == auth.PurposeSetup {
		ctx = context.WithValue(ctx, setupTokenKey, true)
	}
	ctx = logging.ContextWithAttrs(ctx, "user_id", claims.UserID)

	return handler(ctx, req)
}
