package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the session token unless the caller has
// already put one on the context.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	md, _ := metadata.FromOutgoingContext(ctx)
	if len(md.Get(common.AccessTokenHeaderName)) == 0 {
		if token := s.token(); token != "" {
			ctx = withAccessToken(ctx, token)
		}
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewAccountClient connects lazily to endpointURL. Every call gets timeout
// as its deadline when positive. Extra options are appended to the
// defaults (insecure transport, token interceptor).
func NewAccountClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// call sends req to method and returns the reply fields.
func (s *GRPCClient) call(ctx context.Context, method string, req map[string]any) (values, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return values{}, fmt.Errorf("encode request: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, pb.FullMethod(method), in, out); err != nil {
		return values{}, s.mapError(err)
	}
	return values{m: out.GetFields()}, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	msg := st.Message()
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrExists, msg)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrThrottled, msg)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.call(ctx, pb.MethodPing, nil)
	if err != nil {
		return err
	}

	if resp.str("status") != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) StartRegistration(ctx context.Context, email string) (bool, bool, error) {
	resp, err := s.call(ctx, pb.MethodStartRegistration, map[string]any{"email": email})
	if err != nil {
		return false, false, err
	}
	return resp.boolean("resent"), resp.boolean("notification_sent"), nil
}

func (s *GRPCClient) ResendRegistrationCode(ctx context.Context, email string) (bool, error) {
	resp, err := s.call(ctx, pb.MethodResendRegistrationCode, map[string]any{"email": email})
	if err != nil {
		return false, err
	}
	return resp.boolean("notification_sent"), nil
}

func (s *GRPCClient) ConfirmRegistration(ctx context.Context, code string) (*models.Confirmation, error) {
	resp, err := s.call(ctx, pb.MethodConfirmRegistration, map[string]any{"code": code})
	if err != nil {
		return nil, err
	}
	return &models.Confirmation{UserID: resp.str("user_id"), SetupToken: resp.str("setup_token")}, nil
}

// SetPassword authenticates with setupToken instead of the session token.
func (s *GRPCClient) SetPassword(ctx context.Context, setupToken, password string) error {
	if setupToken != "" {
		ctx = withAccessToken(ctx, setupToken)
	}
	_, err := s.call(ctx, pb.MethodSetPassword, map[string]any{"password": password})
	return err
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	resp, err := s.call(ctx, pb.MethodLogin, map[string]any{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return &models.Session{
		UserID:       resp.str("user_id"),
		MasterUserID: resp.str("master_user_id"),
		CompanyID:    resp.str("company_id"),
		Email:        email,
		AccessToken:  resp.str("access_token"),
	}, nil
}

func (s *GRPCClient) CompleteProfile(ctx context.Context, p models.Profile) (bool, error) {
	resp, err := s.call(ctx, pb.MethodCompleteProfile, profileFields(p, nil))
	if err != nil {
		return false, err
	}
	return resp.boolean("notification_sent"), nil
}

func (s *GRPCClient) CheckProfileCompleted(ctx context.Context) (bool, error) {
	resp, err := s.call(ctx, pb.MethodCheckProfileCompleted, nil)
	if err != nil {
		return false, err
	}
	return resp.boolean("completed"), nil
}

func (s *GRPCClient) StartRecovery(ctx context.Context, email string, mode int) (bool, error) {
	resp, err := s.call(ctx, pb.MethodStartRecovery, map[string]any{"email": email, "mode": mode})
	if err != nil {
		return false, err
	}
	return resp.boolean("notification_sent"), nil
}

func (s *GRPCClient) CompleteRecovery(ctx context.Context, code, password string) (bool, error) {
	resp, err := s.call(ctx, pb.MethodCompleteRecovery, map[string]any{"code": code, "password": password})
	if err != nil {
		return false, err
	}
	return resp.boolean("notification_sent"), nil
}

func (s *GRPCClient) CreateCompany(ctx context.Context, name string) (*models.Company, error) {
	resp, err := s.call(ctx, pb.MethodCreateCompany, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	return &models.Company{
		ID:           resp.str("company_id"),
		Name:         resp.str("name"),
		MasterUserID: resp.str("master_user_id"),
	}, nil
}

func (s *GRPCClient) AssignUserToCompany(ctx context.Context, companyID, userID, level string) error {
	_, err := s.call(ctx, pb.MethodAssignUserToCompany, map[string]any{
		"company_id":   companyID,
		"user_id":      userID,
		"access_level": level,
	})
	return err
}

func (s *GRPCClient) ListCompanyMembers(ctx context.Context, companyID string) ([]models.Profile, error) {
	req := map[string]any{}
	if companyID != "" {
		req["company_id"] = companyID
	}
	resp, err := s.call(ctx, pb.MethodListCompanyMembers, req)
	if err != nil {
		return nil, err
	}

	items := resp.list("members")
	members := make([]models.Profile, 0, len(items))
	for _, it := range items {
		members = append(members, it.profile())
	}
	return members, nil
}

func (s *GRPCClient) CreateCompanyMember(ctx context.Context, m models.NewMember) (*models.MemberResult, error) {
	req := profileFields(m.Profile, map[string]any{
		"company_id":   m.CompanyID,
		"email":        m.Email,
		"access_level": m.AccessLevel,
	})
	if m.Password != "" {
		req["password"] = m.Password
	}

	resp, err := s.call(ctx, pb.MethodCreateCompanyMember, req)
	if err != nil {
		return nil, err
	}
	return &models.MemberResult{
		UserID:           resp.str("user_id"),
		Active:           resp.boolean("active"),
		NotificationSent: resp.boolean("notification_sent"),
	}, nil
}

func (s *GRPCClient) UpdateMemberProfile(ctx context.Context, userID, email string, p models.Profile) error {
	req := profileFields(p, map[string]any{"user_id": userID})
	if email != "" {
		req["email"] = email
	}
	_, err := s.call(ctx, pb.MethodUpdateMemberProfile, req)
	return err
}

func (s *GRPCClient) DeactivateMember(ctx context.Context, userID string) error {
	_, err := s.call(ctx, pb.MethodDeactivateMember, map[string]any{"user_id": userID})
	return err
}

// GetAccessLevel reports the role name of userID in companyID. An empty
// userID asks about the caller.
func (s *GRPCClient) GetAccessLevel(ctx context.Context, companyID, userID string) (string, error) {
	req := map[string]any{"company_id": companyID}
	if userID != "" {
		req["user_id"] = userID
	}
	resp, err := s.call(ctx, pb.MethodGetAccessLevel, req)
	if err != nil {
		return "", err
	}
	return resp.str("access_level"), nil
}
