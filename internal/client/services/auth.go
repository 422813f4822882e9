// Package services contains application services for the accountkeeper CLI.
// This file defines the authentication service: the registration flow,
// login with a session persisted between runs, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
	"github.com/dmitrijs2005/accountkeeper/internal/client/models"
	"github.com/dmitrijs2005/accountkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
)

// ErrNoPendingSetup is returned by SetPassword when no registration code was
// confirmed in this run.
var ErrNoPendingSetup = errors.New("confirm a registration code first")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / ResendCode: start or repeat the registration mail.
//   - Confirm: redeem a code; the returned setup token is kept for SetPassword.
//   - SetPassword: set the first password of the confirmed account.
//   - Login: authenticate and persist the session.
//   - Restore: reload a persisted session at start-up.
//   - Logout: forget the session.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, email string) (resent bool, sent bool, err error)
	ResendCode(ctx context.Context, email string) (sent bool, err error)
	Confirm(ctx context.Context, code string) (*models.Confirmation, error)
	SetPassword(ctx context.Context, password []byte) error
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	Restore(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// authService is the concrete AuthService backed by a remote Client and the
// local session database.
type authService struct {
	client     client.Client
	db         *sql.DB
	setupToken string
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getSessionRepo(db dbx.DBTX) session.Repository {
	return session.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, email string) (bool, bool, error) {
	return a.client.StartRegistration(ctx, email)
}

func (a *authService) ResendCode(ctx context.Context, email string) (bool, error) {
	return a.client.ResendRegistrationCode(ctx, email)
}

func (a *authService) Confirm(ctx context.Context, code string) (*models.Confirmation, error) {
	conf, err := a.client.ConfirmRegistration(ctx, code)
	if err != nil {
		return nil, err
	}
	a.setupToken = conf.SetupToken
	return conf, nil
}

// SetPassword spends the setup token obtained by Confirm. The token is kept
// when the server rejects the password so the user can retry.
func (a *authService) SetPassword(ctx context.Context, password []byte) error {
	if a.setupToken == "" {
		return ErrNoPendingSetup
	}
	if err := a.client.SetPassword(ctx, a.setupToken, string(password)); err != nil {
		return err
	}
	a.setupToken = ""
	return nil
}

// Login authenticates against the server and replaces the persisted session.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	s, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getSessionRepo(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return repo.Save(ctx, s)
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	a.client.SetAccessToken(s.AccessToken)
	return s, nil
}

// Restore loads the persisted session and arms the client with its token.
// A missing session yields session.ErrNoSession.
func (a *authService) Restore(ctx context.Context) (*models.Session, error) {
	s, err := a.getSessionRepo(a.db).Load(ctx)
	if err != nil {
		return nil, err
	}
	a.client.SetAccessToken(s.AccessToken)
	return s, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.SetAccessToken("")
	return a.getSessionRepo(a.db).Clear(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
