package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---- fakes ----

type fakeAccounts struct {
	regResp *services.RegistrationResult
	regErr  error

	resendErr error

	confirmResp *services.Confirmation
	confirmErr  error

	setPasswordUser    string
	setPasswordArg     string
	setPasswordInitial bool
	setPasswordErr     error

	loginResp *services.LoginResult
	loginErr  error

	profileUser  string
	profileIn    services.ProfileInput
	profileEmail string
	profileErr   error

	recoveryEmail string
	recoveryMode  services.RecoveryMode
	recoveryErr   error

	completeRecoveryErr error

	completed    bool
	completedErr error
}

func (f *fakeAccounts) StartRegistration(ctx context.Context, email string) (*services.RegistrationResult, error) {
	return f.regResp, f.regErr
}
func (f *fakeAccounts) ResendRegistrationCode(ctx context.Context, email string) error {
	return f.resendErr
}
func (f *fakeAccounts) ConfirmRegistration(ctx context.Context, code string) (*services.Confirmation, error) {
	return f.confirmResp, f.confirmErr
}
func (f *fakeAccounts) SetPassword(ctx context.Context, userID, password string) error {
	f.setPasswordUser, f.setPasswordArg = userID, password
	return f.setPasswordErr
}
func (f *fakeAccounts) SetInitialPassword(ctx context.Context, userID, password string) error {
	f.setPasswordUser, f.setPasswordArg, f.setPasswordInitial = userID, password, true
	return f.setPasswordErr
}
func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return f.loginResp, f.loginErr
}
func (f *fakeAccounts) CompleteProfile(ctx context.Context, userID string, in services.ProfileInput) (string, error) {
	f.profileUser, f.profileIn = userID, in
	return f.profileEmail, f.profileErr
}
func (f *fakeAccounts) StartRecovery(ctx context.Context, email string, mode services.RecoveryMode) error {
	f.recoveryEmail, f.recoveryMode = email, mode
	return f.recoveryErr
}
func (f *fakeAccounts) CompleteRecovery(ctx context.Context, code, password string) error {
	return f.completeRecoveryErr
}
func (f *fakeAccounts) CheckProfileCompleted(ctx context.Context, userID string) (bool, error) {
	return f.completed, f.completedErr
}

type fakeTenants struct {
	company    *models.Company
	companyErr error

	assignLevel models.AccessLevel
	assignErr   error

	members    []*models.Profile
	membersErr error

	memberIn  services.MemberInput
	memberRes *services.MemberResult
	memberErr error

	updateEmail string
	updateErr   error

	deactivated string

	level    models.AccessLevel
	levels   map[string]models.AccessLevel
	levelErr error

	manageErr error
}

func (f *fakeTenants) CreateCompany(ctx context.Context, masterUserID, name string) (*models.Company, error) {
	return f.company, f.companyErr
}
func (f *fakeTenants) AssignUserToCompany(ctx context.Context, companyID, userID string, level models.AccessLevel) error {
	f.assignLevel = level
	return f.assignErr
}
func (f *fakeTenants) ListCompanyMembers(ctx context.Context, masterUserID, companyID string) ([]*models.Profile, error) {
	return f.members, f.membersErr
}
func (f *fakeTenants) CreateCompanyMember(ctx context.Context, in services.MemberInput) (*services.MemberResult, error) {
	f.memberIn = in
	return f.memberRes, f.memberErr
}
func (f *fakeTenants) UpdateMemberProfile(ctx context.Context, userID, email string, in services.ProfileInput) error {
	f.updateEmail = email
	return f.updateErr
}
func (f *fakeTenants) DeactivateMember(ctx context.Context, userID string) error {
	f.deactivated = userID
	return nil
}
// GetAccessLevel answers from levels when set, keyed by user id.
func (f *fakeTenants) GetAccessLevel(ctx context.Context, companyID, userID string) (models.AccessLevel, error) {
	if f.levels != nil {
		return f.levels[userID], f.levelErr
	}
	return f.level, f.levelErr
}
func (f *fakeTenants) CanManageMember(ctx context.Context, callerID, memberID string) error {
	return f.manageErr
}

// ---- helpers ----

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{SecretKey: testSecret, RateLimitPerSecond: 100, RateLimitBurst: 100}
}

func newTestServer(fa *fakeAccounts, ft *fakeTenants) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.NopLogger{}, fa, ft, testConfig(), nil)
}

func asCaller(userID string) context.Context {
	return context.WithValue(context.Background(), userIDKey, userID)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
