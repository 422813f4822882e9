package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
)

type fakeAuth struct {
	regEmail  string
	regResent bool
	regSent   bool
	regErr    error

	confirmCode string
	confirmErr  error

	setPass    []byte
	setPassErr error

	loginEmail string
	loginPass  []byte
	loginRet   *models.Session
	loginErr   error

	restoreRet *models.Session
	restoreErr error

	logoutCalled bool
	pingErr      error
}

func (f *fakeAuth) Register(_ context.Context, email string) (bool, bool, error) {
	f.regEmail = email
	return f.regResent, f.regSent, f.regErr
}
func (f *fakeAuth) ResendCode(_ context.Context, email string) (bool, error) {
	f.regEmail = email
	return f.regSent, f.regErr
}
func (f *fakeAuth) Confirm(_ context.Context, code string) (*models.Confirmation, error) {
	f.confirmCode = code
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &models.Confirmation{UserID: "u1", SetupToken: "setup"}, nil
}
func (f *fakeAuth) SetPassword(_ context.Context, pw []byte) error {
	f.setPass = append([]byte(nil), pw...)
	return f.setPassErr
}
func (f *fakeAuth) Login(_ context.Context, email string, pw []byte) (*models.Session, error) {
	f.loginEmail, f.loginPass = email, append([]byte(nil), pw...)
	return f.loginRet, f.loginErr
}
func (f *fakeAuth) Restore(context.Context) (*models.Session, error) {
	return f.restoreRet, f.restoreErr
}
func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	return nil
}
func (f *fakeAuth) Ping(context.Context) error  { return f.pingErr }
func (f *fakeAuth) Close(context.Context) error { return nil }

// fakeAPI implements the calls the CLI makes directly; the rest of
// client.Client is embedded and unused.
type fakeAPI struct {
	client.Client

	completed bool
	profile   models.Profile
	sent      bool

	recoveryEmail string
	recoveryMode  int
	recoveryCode  string
	recoveryPass  string

	companyName string
	assigned    [3]string

	members     []models.Profile
	listCompany string

	newMember models.NewMember
	memberRes *models.MemberResult

	updatedID    string
	updatedEmail string
	updated      models.Profile

	deactivated string

	levelArgs [2]string
	level     string

	err error
}

func (f *fakeAPI) CheckProfileCompleted(context.Context) (bool, error) { return f.completed, f.err }
func (f *fakeAPI) CompleteProfile(_ context.Context, p models.Profile) (bool, error) {
	f.profile = p
	return f.sent, f.err
}
func (f *fakeAPI) StartRecovery(_ context.Context, email string, mode int) (bool, error) {
	f.recoveryEmail, f.recoveryMode = email, mode
	return f.sent, f.err
}
func (f *fakeAPI) CompleteRecovery(_ context.Context, code, pw string) (bool, error) {
	f.recoveryCode, f.recoveryPass = code, pw
	return f.sent, f.err
}
func (f *fakeAPI) CreateCompany(_ context.Context, name string) (*models.Company, error) {
	f.companyName = name
	if f.err != nil {
		return nil, f.err
	}
	return &models.Company{ID: "c-new", Name: name, MasterUserID: "u1"}, nil
}
func (f *fakeAPI) AssignUserToCompany(_ context.Context, companyID, userID, level string) error {
	f.assigned = [3]string{companyID, userID, level}
	return f.err
}
func (f *fakeAPI) ListCompanyMembers(_ context.Context, companyID string) ([]models.Profile, error) {
	f.listCompany = companyID
	return f.members, f.err
}
func (f *fakeAPI) CreateCompanyMember(_ context.Context, m models.NewMember) (*models.MemberResult, error) {
	f.newMember = m
	return f.memberRes, f.err
}
func (f *fakeAPI) UpdateMemberProfile(_ context.Context, userID, email string, p models.Profile) error {
	f.updatedID, f.updatedEmail, f.updated = userID, email, p
	return f.err
}
func (f *fakeAPI) DeactivateMember(_ context.Context, userID string) error {
	f.deactivated = userID
	return f.err
}
func (f *fakeAPI) GetAccessLevel(_ context.Context, companyID, userID string) (string, error) {
	f.levelArgs = [2]string{companyID, userID}
	return f.level, f.err
}

// newTestApp feeds input lines to the app and captures its output.
func newTestApp(fa *fakeAuth, api *fakeAPI, lines ...string) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	return &App{
		authService: fa,
		api:         api,
		reader:      bufio.NewReader(strings.NewReader(input)),
		out:         out,
	}, out
}

// stubPasswords makes successive password prompts return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	i := 0
	getPassword = func(string, io.Writer) ([]byte, error) {
		if i >= len(pws) {
			return nil, io.EOF
		}
		i++
		return []byte(pws[i-1]), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

func loggedIn(a *App) *App {
	a.session = &models.Session{UserID: "u1", MasterUserID: "u1", CompanyID: "c1", Email: "me@b.io", AccessToken: "tok"}
	return a
}
