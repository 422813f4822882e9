package client

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
)

// Client is the account server API as seen by the CLI. Boolean results named
// sent report whether the server managed to hand the mail to its notifier.
type Client interface {
	Close() error
	SetAccessToken(token string)
	Ping(ctx context.Context) error

	StartRegistration(ctx context.Context, email string) (resent bool, sent bool, err error)
	ResendRegistrationCode(ctx context.Context, email string) (sent bool, err error)
	ConfirmRegistration(ctx context.Context, code string) (*models.Confirmation, error)
	SetPassword(ctx context.Context, setupToken, password string) error
	Login(ctx context.Context, email, password string) (*models.Session, error)
	CompleteProfile(ctx context.Context, p models.Profile) (sent bool, err error)
	CheckProfileCompleted(ctx context.Context) (bool, error)
	StartRecovery(ctx context.Context, email string, mode int) (sent bool, err error)
	CompleteRecovery(ctx context.Context, code, password string) (sent bool, err error)

	CreateCompany(ctx context.Context, name string) (*models.Company, error)
	AssignUserToCompany(ctx context.Context, companyID, userID, level string) error
	ListCompanyMembers(ctx context.Context, companyID string) ([]models.Profile, error)
	CreateCompanyMember(ctx context.Context, m models.NewMember) (*models.MemberResult, error)
	UpdateMemberProfile(ctx context.Context, userID, email string, p models.Profile) error
	DeactivateMember(ctx context.Context, userID string) error
	GetAccessLevel(ctx context.Context, companyID, userID string) (string, error)
}
