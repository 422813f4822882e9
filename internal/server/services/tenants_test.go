package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tenantFixture holds a master with one company.
type tenantFixture struct {
	*fixture
	masterID  string
	companyID string
}

func newTenantFixture(t *testing.T) *tenantFixture {
	t.Helper()
	ctx := context.Background()
	f := newFixture()

	masterID, err := f.activeUser(ctx, "boss@x.com", "secret")
	require.NoError(t, err)

	c, err := f.tenants.CreateCompany(ctx, masterID, "Acme")
	require.NoError(t, err)
	assert.Equal(t, masterID, c.MasterUserID)

	return &tenantFixture{fixture: f, masterID: masterID, companyID: c.ID}
}

func TestResolveMasterCompany(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	loner, err := f.activeUser(ctx, "loner@x.com", "secret")
	require.NoError(t, err)
	mc, err := f.tenants.ResolveMasterCompany(ctx, loner)
	require.NoError(t, err)
	assert.Equal(t, &models.MasterContext{MasterUserID: loner}, mc)

	mc, err = f.tenants.ResolveMasterCompany(ctx, f.masterID)
	require.NoError(t, err)
	assert.Equal(t, &models.MasterContext{MasterUserID: f.masterID, CompanyID: f.companyID}, mc)

	// earliest membership wins over later ones
	other, err := f.tenants.CreateCompany(ctx, loner, "Other")
	require.NoError(t, err)

	member, err := f.activeUser(ctx, "m@x.com", "secret")
	require.NoError(t, err)
	require.NoError(t, f.tenants.AssignUserToCompany(ctx, f.companyID, member, models.AccessEditor))
	require.NoError(t, f.tenants.AssignUserToCompany(ctx, other.ID, member, models.AccessReader))

	mc, err = f.tenants.ResolveMasterCompany(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, &models.MasterContext{MasterUserID: f.masterID, CompanyID: f.companyID}, mc)

	login, err := f.accounts.Login(ctx, "m@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, f.masterID, login.MasterUserID)
	assert.Equal(t, f.companyID, login.CompanyID)
}

func TestAssignUserToCompany(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	uid, err := f.activeUser(ctx, "u@x.com", "secret")
	require.NoError(t, err)

	require.NoError(t, f.tenants.AssignUserToCompany(ctx, f.companyID, uid, models.AccessEditor))

	err = f.tenants.AssignUserToCompany(ctx, f.companyID, uid, models.AccessEditor)
	assert.ErrorIs(t, err, common.ErrDuplicateAssignment)
	assert.ErrorIs(t, err, common.ErrConflict)

	level, err := f.tenants.GetAccessLevel(ctx, f.companyID, uid)
	require.NoError(t, err)
	assert.Equal(t, models.AccessEditor, level)
}

func TestAssignUserToCompany_Errors(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	assert.ErrorIs(t, f.tenants.AssignUserToCompany(ctx, "", "u", models.AccessReader), common.ErrValidation)
	assert.ErrorIs(t, f.tenants.AssignUserToCompany(ctx, f.companyID, f.masterID, models.AccessLevel(9)), common.ErrValidation)
	assert.ErrorIs(t, f.tenants.AssignUserToCompany(ctx, unknownID, f.masterID, models.AccessReader), common.ErrNoSuchCompany)
	assert.ErrorIs(t, f.tenants.AssignUserToCompany(ctx, f.companyID, unknownID, models.AccessReader), common.ErrNoSuchUser)
}

func TestCreateCompany_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.accounts.StartRegistration(ctx, "pending@x.com")
	require.NoError(t, err)

	_, err = f.tenants.CreateCompany(ctx, res.UserID, "Acme")
	assert.ErrorIs(t, err, common.ErrNotActive)

	_, err = f.tenants.CreateCompany(ctx, unknownID, "Acme")
	assert.ErrorIs(t, err, common.ErrNoSuchUser)

	_, err = f.tenants.CreateCompany(ctx, res.UserID, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateCompanyMember_WithPassword(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	res, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID:   f.companyID,
		Email:       "Worker@X.com",
		Password:    "secret",
		AccessLevel: models.AccessCreator,
		Profile:     ProfileInput{FirstName: "Wes"},
	})
	require.NoError(t, err)
	assert.True(t, res.Active)

	login, err := f.accounts.Login(ctx, "worker@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, res.UserID, login.UserID)
	assert.Equal(t, f.companyID, login.CompanyID)

	completed, err := f.accounts.CheckProfileCompleted(ctx, res.UserID)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestCreateCompanyMember_Invitation(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	res, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID:   f.companyID,
		Email:       "new@x.com",
		AccessLevel: models.AccessReader,
		Profile:     ProfileInput{FirstName: "Nia"},
	})
	require.NoError(t, err)
	assert.False(t, res.Active)

	code := f.store.code(models.PurposeRegistration, res.UserID)
	require.NotEmpty(t, code)
	assert.Equal(t, "new@x.com", f.notifier.last().To)
	assert.Equal(t, "You have been invited", f.notifier.last().Subject)
	assert.Contains(t, f.notifier.last().HTML, code)

	conf, err := f.accounts.ConfirmRegistration(ctx, code)
	require.NoError(t, err)
	require.NoError(t, f.accounts.SetPassword(ctx, conf.UserID, "secret"))

	_, err = f.accounts.Login(ctx, "new@x.com", "secret")
	assert.NoError(t, err)
}

func TestCreateCompanyMember_Errors(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)
	users := f.store.userCount()

	_, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID: f.companyID, Email: "boss@x.com", AccessLevel: models.AccessReader,
		Profile: ProfileInput{FirstName: "Dup"},
	})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	_, err = f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID: unknownID, Email: "x@x.com", AccessLevel: models.AccessReader,
		Profile: ProfileInput{FirstName: "X"},
	})
	assert.ErrorIs(t, err, common.ErrNoSuchCompany)

	_, err = f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID: f.companyID, Email: "x@x.com", Password: "123", AccessLevel: models.AccessReader,
		Profile: ProfileInput{FirstName: "X"},
	})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID: f.companyID, Email: "x@x.com", AccessLevel: models.AccessReader,
	})
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Equal(t, users, f.store.userCount(), "failed calls leave no users behind")
}

func TestListCompanyMembers(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	second, err := f.tenants.CreateCompany(ctx, f.masterID, "Second")
	require.NoError(t, err)

	for _, m := range []struct {
		email   string
		company string
	}{
		{"zed@x.com", f.companyID},
		{"amy@x.com", f.companyID},
		{"bob@x.com", second.ID},
	} {
		_, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
			CompanyID: m.company, Email: m.email, Password: "secret", AccessLevel: models.AccessReader,
			Profile: ProfileInput{FirstName: "M"},
		})
		require.NoError(t, err)
	}

	all, err := f.tenants.ListCompanyMembers(ctx, f.masterID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@x.com", "bob@x.com", "zed@x.com"}, emails(all))

	first, err := f.tenants.ListCompanyMembers(ctx, f.masterID, f.companyID)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@x.com", "zed@x.com"}, emails(first))

	require.NoError(t, f.tenants.DeactivateMember(ctx, first[0].UserID))
	first, err = f.tenants.ListCompanyMembers(ctx, f.masterID, f.companyID)
	require.NoError(t, err)
	assert.Equal(t, []string{"zed@x.com"}, emails(first))

	stranger, err := f.activeUser(ctx, "s@x.com", "secret")
	require.NoError(t, err)
	_, err = f.tenants.ListCompanyMembers(ctx, stranger, f.companyID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.tenants.ListCompanyMembers(ctx, f.masterID, unknownID)
	assert.ErrorIs(t, err, common.ErrNoSuchCompany)
}

func emails(list []*models.Profile) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.Email)
	}
	return out
}

func TestUpdateMemberProfile(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	res, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID: f.companyID, Email: "old@x.com", Password: "secret", AccessLevel: models.AccessEditor,
		Profile: ProfileInput{FirstName: "Old"},
	})
	require.NoError(t, err)

	err = f.tenants.UpdateMemberProfile(ctx, res.UserID, "New@x.com", ProfileInput{FirstName: "New", Description: "moved"})
	require.NoError(t, err)

	_, err = f.accounts.Login(ctx, "new@x.com", "secret")
	assert.NoError(t, err)

	err = f.tenants.UpdateMemberProfile(ctx, res.UserID, "", ProfileInput{FirstName: "Kept"})
	require.NoError(t, err)
	_, err = f.accounts.Login(ctx, "new@x.com", "secret")
	assert.NoError(t, err)

	err = f.tenants.UpdateMemberProfile(ctx, res.UserID, "boss@x.com", ProfileInput{FirstName: "Clash"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	err = f.tenants.UpdateMemberProfile(ctx, unknownID, "", ProfileInput{FirstName: "X"})
	assert.ErrorIs(t, err, common.ErrNoSuchUser)
}

func TestDeactivateMember_FreesEmail(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	res, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
		CompanyID: f.companyID, Email: "gone@x.com", Password: "secret", AccessLevel: models.AccessReader,
		Profile: ProfileInput{FirstName: "Gone"},
	})
	require.NoError(t, err)

	require.NoError(t, f.tenants.DeactivateMember(ctx, res.UserID))
	assert.ErrorIs(t, f.tenants.DeactivateMember(ctx, res.UserID), common.ErrNoSuchUser)

	_, err = f.accounts.Login(ctx, "gone@x.com", "secret")
	assert.ErrorIs(t, err, common.ErrNoSuchUser)

	again, err := f.accounts.StartRegistration(ctx, "gone@x.com")
	require.NoError(t, err)
	assert.False(t, again.Resent)
	assert.NotEqual(t, res.UserID, again.UserID)
}

func TestGetAccessLevel(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	level, err := f.tenants.GetAccessLevel(ctx, f.companyID, f.masterID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessAdmin, level)

	stranger, err := f.activeUser(ctx, "s@x.com", "secret")
	require.NoError(t, err)
	level, err = f.tenants.GetAccessLevel(ctx, f.companyID, stranger)
	require.NoError(t, err)
	assert.Equal(t, models.AccessNone, level)

	_, err = f.tenants.GetAccessLevel(ctx, unknownID, stranger)
	assert.ErrorIs(t, err, common.ErrNoSuchCompany)
}

func TestCanManageMember(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)

	create := func(email string, level models.AccessLevel) string {
		res, err := f.tenants.CreateCompanyMember(ctx, MemberInput{
			CompanyID: f.companyID, Email: email, Password: "secret", AccessLevel: level,
			Profile: ProfileInput{FirstName: "M"},
		})
		require.NoError(t, err)
		return res.UserID
	}
	admin := create("admin@x.com", models.AccessAdmin)
	reader := create("reader@x.com", models.AccessReader)
	editor := create("editor@x.com", models.AccessEditor)

	assert.NoError(t, f.tenants.CanManageMember(ctx, reader, reader))
	assert.NoError(t, f.tenants.CanManageMember(ctx, admin, editor))
	assert.NoError(t, f.tenants.CanManageMember(ctx, f.masterID, editor))
	assert.ErrorIs(t, f.tenants.CanManageMember(ctx, reader, editor), common.ErrForbidden)
	assert.ErrorIs(t, f.tenants.CanManageMember(ctx, editor, f.masterID), common.ErrForbidden)
}

func TestMalformedIDsNeverReachTheStore(t *testing.T) {
	ctx := context.Background()
	f := newTenantFixture(t)
	f.store.failOn("users.GetByID", errors.New("store must not be called"))

	for _, bad := range []string{"42", "1", "not-a-uuid", "0b1e4f5a-6c3d-4e2f-9a8b"} {
		assert.ErrorIs(t, f.tenants.AssignUserToCompany(ctx, bad, f.masterID, models.AccessEditor), common.ErrValidation, bad)
		assert.ErrorIs(t, f.tenants.AssignUserToCompany(ctx, f.companyID, bad, models.AccessEditor), common.ErrValidation, bad)

		_, err := f.tenants.CreateCompany(ctx, bad, "Acme")
		assert.ErrorIs(t, err, common.ErrValidation, bad)

		_, err = f.tenants.GetAccessLevel(ctx, bad, f.masterID)
		assert.ErrorIs(t, err, common.ErrValidation, bad)
		_, err = f.tenants.GetAccessLevel(ctx, f.companyID, bad)
		assert.ErrorIs(t, err, common.ErrValidation, bad)

		_, err = f.tenants.ListCompanyMembers(ctx, f.masterID, bad)
		assert.ErrorIs(t, err, common.ErrValidation, bad)

		_, err = f.tenants.CreateCompanyMember(ctx, MemberInput{
			CompanyID: bad, Email: "x@x.com", AccessLevel: models.AccessReader, Profile: ProfileInput{FirstName: "X"},
		})
		assert.ErrorIs(t, err, common.ErrValidation, bad)

		assert.ErrorIs(t, f.tenants.UpdateMemberProfile(ctx, bad, "", ProfileInput{FirstName: "X"}), common.ErrValidation, bad)
		assert.ErrorIs(t, f.tenants.DeactivateMember(ctx, bad), common.ErrValidation, bad)
		assert.ErrorIs(t, f.tenants.CanManageMember(ctx, f.masterID, bad), common.ErrValidation, bad)

		assert.ErrorIs(t, f.accounts.SetPassword(ctx, bad, "secret"), common.ErrValidation, bad)
		_, err = f.accounts.CheckProfileCompleted(ctx, bad)
		assert.ErrorIs(t, err, common.ErrValidation, bad)
		_, err = f.accounts.CompleteProfile(ctx, bad, ProfileInput{FirstName: "Ann"})
		assert.ErrorIs(t, err, common.ErrValidation, bad)
	}
}
