package grpc

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return reply(map[string]any{"status": "OK"})

}

func (s *GRPCServer) StartRegistration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)

	res, err := s.accounts.StartRegistration(ctx, f.str("email"))
	sent, err := notified(err)
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"resent": res.Resent, "notification_sent": sent})

}

func (s *GRPCServer) ResendRegistrationCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	sent, err := notified(s.accounts.ResendRegistrationCode(ctx, newFields(req).str("email")))
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"notification_sent": sent})

}

func (s *GRPCServer) ConfirmRegistration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	conf, err := s.accounts.ConfirmRegistration(ctx, newFields(req).str("code"))
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"user_id": conf.UserID, "setup_token": conf.SetupToken})

}

// SetPassword sets the password of the token holder. A setup token only
// sets the first password.
func (s *GRPCServer) SetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	set := s.accounts.SetPassword
	if fromSetupToken(ctx) {
		set = s.accounts.SetInitialPassword
	}

	if err := set(ctx, userID, newFields(req).raw("password")); err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"user_id": userID})

}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)

	res, err := s.accounts.Login(ctx, f.str("email"), f.raw("password"))
	if err != nil {
		return nil, authStatus(err)
	}

	return reply(map[string]any{
		"user_id":        res.UserID,
		"master_user_id": res.MasterUserID,
		"company_id":     res.CompanyID,
		"access_token":   res.AccessToken,
	})

}

func (s *GRPCServer) CompleteProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	in, err := newFields(req).profile()
	if err != nil {
		return nil, toStatus(err)
	}

	email, err := s.accounts.CompleteProfile(ctx, userID, in)
	sent, err := notified(err)
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"email": email, "notification_sent": sent})

}

func (s *GRPCServer) CheckProfileCompleted(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	completed, err := s.accounts.CheckProfileCompleted(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"completed": completed})

}

func (s *GRPCServer) StartRecovery(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)

	mode, err := f.integer("mode")
	if err != nil {
		return nil, toStatus(err)
	}

	sent, err := notified(s.accounts.StartRecovery(ctx, f.str("email"), services.RecoveryMode(mode)))
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"notification_sent": sent})

}

func (s *GRPCServer) CompleteRecovery(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)

	sent, err := notified(s.accounts.CompleteRecovery(ctx, f.str("code"), f.raw("password")))
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"notification_sent": sent})

}

func (s *GRPCServer) CreateCompany(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.tenants.CreateCompany(ctx, userID, newFields(req).str("name"))
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"company_id": c.ID, "name": c.Name, "master_user_id": c.MasterUserID})

}

func (s *GRPCServer) AssignUserToCompany(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)
	companyID := f.str("company_id")

	if err := s.requireAdmin(ctx, companyID); err != nil {
		return nil, err
	}

	level, err := f.accessLevel("access_level")
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.tenants.AssignUserToCompany(ctx, companyID, f.str("user_id"), level); err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{})

}

// ListCompanyMembers lists members of the companies the caller owns.
func (s *GRPCServer) ListCompanyMembers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.tenants.ListCompanyMembers(ctx, userID, newFields(req).str("company_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	members := make([]any, 0, len(list))
	for _, p := range list {
		members = append(members, profileValue(p))
	}

	return reply(map[string]any{"members": members})

}

func (s *GRPCServer) CreateCompanyMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)
	companyID := f.str("company_id")

	if err := s.requireAdmin(ctx, companyID); err != nil {
		return nil, err
	}

	level, err := f.accessLevel("access_level")
	if err != nil {
		return nil, toStatus(err)
	}
	profile, err := f.profile()
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := s.tenants.CreateCompanyMember(ctx, services.MemberInput{
		CompanyID:   companyID,
		Email:       f.str("email"),
		Password:    f.raw("password"),
		AccessLevel: level,
		Profile:     profile,
	})
	sent, err := notified(err)
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"user_id": res.UserID, "active": res.Active, "notification_sent": sent})

}

func (s *GRPCServer) UpdateMemberProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	f := newFields(req)
	memberID := f.str("user_id")

	if err := s.requireManager(ctx, memberID); err != nil {
		return nil, err
	}

	profile, err := f.profile()
	if err != nil {
		return nil, toStatus(err)
	}

	if err := s.tenants.UpdateMemberProfile(ctx, memberID, f.str("email"), profile); err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{})

}

func (s *GRPCServer) DeactivateMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	memberID := newFields(req).str("user_id")

	if err := s.requireManager(ctx, memberID); err != nil {
		return nil, err
	}

	if err := s.tenants.DeactivateMember(ctx, memberID); err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{})

}

// GetAccessLevel reports the level of user_id, or of the caller when
// user_id is empty. Asking about someone else needs Admin in the company.
func (s *GRPCServer) GetAccessLevel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	callerID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	f := newFields(req)
	companyID := f.str("company_id")
	userID := f.str("user_id")
	if userID == "" {
		userID = callerID
	}
	if userID != callerID {
		if err := s.requireAdmin(ctx, companyID); err != nil {
			return nil, err
		}
	}

	level, err := s.tenants.GetAccessLevel(ctx, companyID, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return reply(map[string]any{"access_level": level.String(), "level": int(level)})

}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return userID, nil
}

// requireAdmin lets the call through when the caller is at least Admin in
// companyID.
func (s *GRPCServer) requireAdmin(ctx context.Context, companyID string) error {
	userID, err := s.caller(ctx)
	if err != nil {
		return err
	}

	level, err := s.tenants.GetAccessLevel(ctx, companyID, userID)
	if err != nil {
		return toStatus(err)
	}
	if !level.IsAtLeast(models.AccessAdmin) {
		return toStatus(common.ErrForbidden)
	}
	return nil
}

func (s *GRPCServer) requireManager(ctx context.Context, memberID string) error {
	userID, err := s.caller(ctx)
	if err != nil {
		return err
	}
	return toStatus(s.tenants.CanManageMember(ctx, userID, memberID))
}
