package cli

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Resent(t *testing.T) {
	fa := &fakeAuth{regResent: true, regSent: true}
	a, out := newTestApp(fa, &fakeAPI{}, "alice@example.org")

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, "alice@example.org", fa.regEmail)
	assert.Contains(t, out.String(), "already waiting for confirmation")
	assert.Contains(t, out.String(), "Registration code sent")
}

func TestRegister_MailFailed(t *testing.T) {
	fa := &fakeAuth{regSent: false}
	a, out := newTestApp(fa, &fakeAPI{}, "alice@example.org")

	require.NoError(t, a.Register(context.Background()))
	assert.Contains(t, out.String(), "could not send the mail")
}

func TestRegister_Error(t *testing.T) {
	fa := &fakeAuth{regErr: client.ErrExists}
	a, _ := newTestApp(fa, &fakeAPI{}, "alice@example.org")

	require.ErrorIs(t, a.Register(context.Background()), client.ErrExists)
}

func TestConfirm_ThenSetsPassword(t *testing.T) {
	fa := &fakeAuth{}
	a, out := newTestApp(fa, &fakeAPI{}, "CODE123")
	stubPasswords(t, "secret1", "secret1")

	require.NoError(t, a.Confirm(context.Background()))
	assert.Equal(t, "CODE123", fa.confirmCode)
	assert.Equal(t, "secret1", string(fa.setPass))
	assert.Contains(t, out.String(), "Password set")
}

func TestConfirm_BadCodeSkipsPassword(t *testing.T) {
	fa := &fakeAuth{confirmErr: client.ErrNotFound}
	a, _ := newTestApp(fa, &fakeAPI{}, "BAD")
	stubPasswords(t)

	require.ErrorIs(t, a.Confirm(context.Background()), client.ErrNotFound)
	assert.Nil(t, fa.setPass)
}

func TestSetPassword_Mismatch(t *testing.T) {
	fa := &fakeAuth{}
	a, _ := newTestApp(fa, &fakeAPI{})
	stubPasswords(t, "secret1", "secret2")

	err := a.SetPassword(context.Background())
	require.EqualError(t, err, "passwords do not match")
	assert.Nil(t, fa.setPass)
}

func TestLogin_SetsSessionAndRemindsProfile(t *testing.T) {
	fa := &fakeAuth{loginRet: &models.Session{UserID: "u1", Email: "a@b.io", AccessToken: "tok"}}
	a, out := newTestApp(fa, &fakeAPI{completed: false}, "a@b.io")
	stubPasswords(t, "pw secret")

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "a@b.io", fa.loginEmail)
	assert.Equal(t, "pw secret", string(fa.loginPass))
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Login successful")
	assert.Contains(t, out.String(), "run 'profile'")
}

func TestLogin_CompletedProfileNoReminder(t *testing.T) {
	fa := &fakeAuth{loginRet: &models.Session{UserID: "u1", Email: "a@b.io", AccessToken: "tok"}}
	a, out := newTestApp(fa, &fakeAPI{completed: true}, "a@b.io")
	stubPasswords(t, "pw")

	require.NoError(t, a.Login(context.Background()))
	assert.NotContains(t, out.String(), "run 'profile'")
}

func TestLogin_Failure(t *testing.T) {
	fa := &fakeAuth{loginErr: client.ErrUnauthorized}
	a, _ := newTestApp(fa, &fakeAPI{}, "a@b.io")
	stubPasswords(t, "bad")

	require.ErrorIs(t, a.Login(context.Background()), client.ErrUnauthorized)
	assert.False(t, a.isLoggedIn())
}

func TestLogout(t *testing.T) {
	fa := &fakeAuth{}
	a, _ := newTestApp(fa, &fakeAPI{})
	loggedIn(a)

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, fa.logoutCalled)
	assert.False(t, a.isLoggedIn())
}

func TestPing_SetsMode(t *testing.T) {
	fa := &fakeAuth{}
	a, out := newTestApp(fa, &fakeAPI{})

	require.NoError(t, a.Ping(context.Background()))
	assert.Equal(t, ModeOnline, a.getMode())
	assert.Contains(t, out.String(), "Server is up")

	fa.pingErr = client.ErrUnavailable
	require.ErrorIs(t, a.Ping(context.Background()), client.ErrUnavailable)
	assert.Equal(t, ModeOffline, a.getMode())
}

func TestWhoAmI(t *testing.T) {
	a, out := newTestApp(&fakeAuth{}, &fakeAPI{completed: true})
	loggedIn(a)

	require.NoError(t, a.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "me@b.io")
	assert.Contains(t, out.String(), "Company: c1")
	assert.Contains(t, out.String(), "Profile complete: true")
}
