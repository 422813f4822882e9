// Package grpc exposes the account services over gRPC. Requests and replies
// are google.protobuf.Struct messages keyed by snake_case field names; the
// service descriptor is declared by hand in service.go.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"google.golang.org/grpc"
)

type AccountService interface {
	StartRegistration(ctx context.Context, email string) (*services.RegistrationResult, error)
	ResendRegistrationCode(ctx context.Context, email string) error
	ConfirmRegistration(ctx context.Context, code string) (*services.Confirmation, error)
	SetPassword(ctx context.Context, userID, password string) error
	SetInitialPassword(ctx context.Context, userID, password string) error
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	CompleteProfile(ctx context.Context, userID string, in services.ProfileInput) (string, error)
	StartRecovery(ctx context.Context, email string, mode services.RecoveryMode) error
	CompleteRecovery(ctx context.Context, code, password string) error
	CheckProfileCompleted(ctx context.Context, userID string) (bool, error)
}

type TenantService interface {
	CreateCompany(ctx context.Context, masterUserID, name string) (*models.Company, error)
	AssignUserToCompany(ctx context.Context, companyID, userID string, level models.AccessLevel) error
	ListCompanyMembers(ctx context.Context, masterUserID, companyID string) ([]*models.Profile, error)
	CreateCompanyMember(ctx context.Context, in services.MemberInput) (*services.MemberResult, error)
	UpdateMemberProfile(ctx context.Context, userID, email string, in services.ProfileInput) error
	DeactivateMember(ctx context.Context, userID string) error
	GetAccessLevel(ctx context.Context, companyID, userID string) (models.AccessLevel, error)
	CanManageMember(ctx context.Context, callerID, memberID string) error
}

type GRPCServer struct {
	address   string
	accounts  AccountService
	tenants   TenantService
	logger    logging.Logger
	metrics   *metrics.Metrics
	limiter   *peerLimiter
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, as AccountService, ts TenantService, cfg *config.Config, mt *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		accounts:  as,
		tenants:   ts,
		metrics:   mt,
		limiter:   newPeerLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		jwtSecret: []byte(cfg.SecretKey),
	}
}

// newServer builds the grpc.Server with the interceptor chain and the
// account service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.requestIDInterceptor,
		s.loggingInterceptor,
		s.metricsInterceptor,
		s.rateLimitInterceptor,
		s.accessTokenInterceptor,
	))
	srv.RegisterService(&serviceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
