// Package services implements the account lifecycle and the tenant registry
// on top of the repositories. Services return result structs and errors from
// internal/common; raw store failures never leave this package.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/codegen"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
)

// RecoveryMode selects what StartRecovery sends.
type RecoveryMode int

const (
	RecoveryForgotten RecoveryMode = iota
	RecoveryResend
	RecoveryPasswordChanged
)

func (m RecoveryMode) Valid() bool {
	return m >= RecoveryForgotten && m <= RecoveryPasswordChanged
}

// MasterResolver finds the tenant context of a user at login.
type MasterResolver interface {
	ResolveMasterCompany(ctx context.Context, userID string) (*models.MasterContext, error)
}

type RegistrationResult struct {
	UserID string
	// Resent is set when the email was already pending and the call
	// replaced its code instead of creating an account.
	Resent bool
}

type Confirmation struct {
	UserID     string
	SetupToken string
}

type LoginResult struct {
	UserID       string
	MasterUserID string
	CompanyID    string
	AccessToken  string
}

type AccountService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	tenants     MasterResolver
	codes       *codegen.Generator
	mailer
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
	tokenTTL  time.Duration
	codeTTL   time.Duration
	now       func() time.Time
	dummySalt []byte
}

func NewAccountService(tx dbx.Transactor, m repomanager.RepositoryManager, tenants MasterResolver,
	n notify.Notifier, cfg *config.Config, l logging.Logger, mt *metrics.Metrics) *AccountService {

	logger := l.With("module", "accounts")
	return &AccountService{
		tx:          tx,
		repomanager: m,
		tenants:     tenants,
		codes:       codegen.New(),
		mailer:      mailer{notifier: n, logger: logger, metrics: mt},
		logger:      logger,
		metrics:     mt,
		jwtSecret:   []byte(cfg.SecretKey),
		tokenTTL:    cfg.AccessTokenValidityDuration,
		codeTTL:     cfg.CodeValidityDuration,
		now:         time.Now,
		dummySalt:   common.GenerateRandByteArray(cryptox.SaltLen),
	}
}

// StartRegistration creates a pending account for email and mails its
// registration code. An email that is already pending gets a fresh code.
func (s *AccountService) StartRegistration(ctx context.Context, email string) (*RegistrationResult, error) {

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	res, code, err := s.register(ctx, email)
	if errors.Is(err, common.ErrConflict) && !errors.Is(err, common.ErrDuplicateEmail) {
		// another call inserted the same email first; its account is pending now
		res, code, err = s.register(ctx, email)
	}
	if err != nil {
		return nil, sanitize(ctx, s.logger, "start registration", err)
	}

	if res.Resent {
		s.metrics.Event(metrics.EventRegistrationResent)
	} else {
		s.metrics.Event(metrics.EventRegistrationStarted)
	}
	s.logger.Info(ctx, "registration started", "user_id", res.UserID, "resent", res.Resent)

	return res, s.deliver(ctx, notify.RegistrationCode(email, code, validityText(s.codeTTL), res.Resent))
}

func (s *AccountService) register(ctx context.Context, email string) (*RegistrationResult, string, error) {

	var res RegistrationResult
	var code string

	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		profiles := s.repomanager.Profiles(tx)
		users := s.repomanager.Users(tx)

		p, err := profiles.GetByEmail(ctx, email)
		switch {
		case err == nil:
			u, err := users.GetByID(ctx, p.UserID)
			if err != nil {
				return fmt.Errorf("error loading user: %w", err)
			}
			if u.HasPassword() {
				return common.ErrDuplicateEmail
			}
			res = RegistrationResult{UserID: u.ID, Resent: true}
		case errors.Is(err, common.ErrNotFound):
			u, err := users.Create(ctx)
			if err != nil {
				return fmt.Errorf("error creating user: %w", err)
			}
			if err := profiles.Create(ctx, &models.Profile{UserID: u.ID, Email: email}); err != nil {
				return fmt.Errorf("error creating profile: %w", err)
			}
			res = RegistrationResult{UserID: u.ID}
		default:
			return fmt.Errorf("error searching profile: %w", err)
		}

		code, err = issueCode(ctx, s.codes, s.repomanager.Codes(tx, models.PurposeRegistration), res.UserID, s.now().Add(s.codeTTL))
		return err
	})

	return &res, code, err
}

// ResendRegistrationCode replaces the code of a pending account and mails it.
func (s *AccountService) ResendRegistrationCode(ctx context.Context, email string) error {

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	var code, userID string
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repomanager.Profiles(tx).GetByEmail(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNoSuchUser
		}
		if err != nil {
			return fmt.Errorf("error searching profile: %w", err)
		}

		u, err := s.repomanager.Users(tx).GetByID(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		if u.HasPassword() {
			return common.ErrNotPending
		}

		userID = u.ID
		code, err = issueCode(ctx, s.codes, s.repomanager.Codes(tx, models.PurposeRegistration), u.ID, s.now().Add(s.codeTTL))
		return err
	})
	if err != nil {
		return sanitize(ctx, s.logger, "resend registration code", err)
	}

	s.metrics.Event(metrics.EventRegistrationResent)
	s.logger.Info(ctx, "registration code resent", "user_id", userID)

	return s.deliver(ctx, notify.RegistrationCode(email, code, validityText(s.codeTTL), true))
}

// ConfirmRegistration consumes a registration code. The account stays
// pending; the returned setup token authorizes the SetPassword call.
func (s *AccountService) ConfirmRegistration(ctx context.Context, code string) (*Confirmation, error) {

	code = codegen.Normalize(code)
	if code == "" {
		return nil, common.Validation("code is required")
	}
	if !codegen.WellFormed(code) {
		return nil, common.ErrInvalidOrExpiredCode
	}

	userID, err := s.repomanager.Codes(s.tx.Conn(), models.PurposeRegistration).Consume(ctx, code, s.now())
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, sanitize(ctx, s.logger, "confirm registration", err)
	}

	token, err := auth.GenerateToken(userID, auth.PurposeSetup, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "confirm registration", err)
	}

	s.metrics.Event(metrics.EventRegistrationConfirmed)
	s.logger.Info(ctx, "registration confirmed", "user_id", userID)

	return &Confirmation{UserID: userID, SetupToken: token}, nil
}

// SetPassword stores a new hash and salt; the account becomes active.
func (s *AccountService) SetPassword(ctx context.Context, userID, password string) error {
	return s.setPassword(ctx, userID, password, false)
}

// SetInitialPassword is SetPassword for an account that has no password yet.
// Once one is set it fails with ErrPasswordAlreadySet, so a setup token
// works exactly once.
func (s *AccountService) SetInitialPassword(ctx context.Context, userID, password string) error {
	return s.setPassword(ctx, userID, password, true)
}

func (s *AccountService) setPassword(ctx context.Context, userID, password string, initial bool) error {

	if err := validateID("user id", userID); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	users := s.repomanager.Users(s.tx.Conn())

	if initial {
		u, err := users.GetByID(ctx, userID)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNoSuchUser
		}
		if err != nil {
			return sanitize(ctx, s.logger, "set password", err)
		}
		if u.HasPassword() {
			return common.ErrPasswordAlreadySet
		}
	}

	hash, salt, err := cryptox.HashPassword(password)
	if err != nil {
		return sanitize(ctx, s.logger, "set password", err)
	}

	if initial {
		// users are never removed, so no row means a concurrent setter won
		err = users.SetInitialPassword(ctx, userID, hash, salt)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrPasswordAlreadySet
		}
	} else {
		err = users.SetPassword(ctx, userID, hash, salt)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNoSuchUser
		}
	}
	if err != nil {
		return sanitize(ctx, s.logger, "set password", err)
	}

	s.metrics.Event(metrics.EventPasswordSet)
	s.logger.Info(ctx, "password set", "user_id", userID)
	return nil
}

// Login checks the password of the account registered under email. Unknown
// emails and pending accounts cost one key derivation like a real check.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {

	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, common.Validation("password cannot be blank")
	}

	conn := s.tx.Conn()

	p, err := s.repomanager.Profiles(conn).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		cryptox.VerifyPassword(password, nil, s.dummySalt)
		s.loginFailed(ctx, "", "unknown email")
		return nil, common.ErrNoSuchUser
	}
	if err != nil {
		return nil, sanitize(ctx, s.logger, "login", err)
	}

	u, err := s.repomanager.Users(conn).GetByID(ctx, p.UserID)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "login", err)
	}

	if !u.HasPassword() {
		cryptox.VerifyPassword(password, nil, s.dummySalt)
		s.loginFailed(ctx, u.ID, "no password set")
		return nil, common.ErrWrongPassword
	}
	if !cryptox.VerifyPassword(password, u.PasswordHash, u.PasswordSalt) {
		s.loginFailed(ctx, u.ID, "wrong password")
		return nil, common.ErrWrongPassword
	}

	mc, err := s.tenants.ResolveMasterCompany(ctx, u.ID)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "login", err)
	}

	token, err := auth.GenerateToken(u.ID, auth.PurposeAccess, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "login", err)
	}

	s.metrics.Event(metrics.EventLoginSucceeded)
	s.logger.Info(ctx, "login succeeded", "user_id", u.ID, "company_id", mc.CompanyID)

	return &LoginResult{
		UserID:       u.ID,
		MasterUserID: mc.MasterUserID,
		CompanyID:    mc.CompanyID,
		AccessToken:  token,
	}, nil
}

func (s *AccountService) loginFailed(ctx context.Context, userID, reason string) {
	s.metrics.Event(metrics.EventLoginFailed)
	s.logger.Info(ctx, "login failed", "user_id", userID, "reason", reason)
}

// CompleteProfile stores the profile of an active account and seeds the
// standard roles of the user. Roles are seeded once; a repeated call only
// updates the profile and sends no second welcome mail.
func (s *AccountService) CompleteProfile(ctx context.Context, userID string, in ProfileInput) (string, error) {

	if err := validateID("user id", userID); err != nil {
		return "", err
	}
	if err := in.Validate(); err != nil {
		return "", err
	}

	var p *models.Profile
	var seeded int64

	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		profiles := s.repomanager.Profiles(tx)

		p, err = profiles.GetByUserID(ctx, userID)
		if errors.Is(err, common.ErrNotFound) || (err == nil && p.Deleted) {
			return common.ErrNoSuchUser
		}
		if err != nil {
			return fmt.Errorf("error loading profile: %w", err)
		}

		u, err := s.repomanager.Users(tx).GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		if !u.HasPassword() {
			return common.ErrNotActive
		}

		in.apply(p)
		if err := profiles.Update(ctx, p); err != nil {
			return fmt.Errorf("error updating profile: %w", err)
		}

		seeded, err = s.repomanager.Roles(tx).Seed(ctx, userID, models.StandardRoles)
		if err != nil {
			return fmt.Errorf("error seeding roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", sanitize(ctx, s.logger, "complete profile", err)
	}

	s.logger.Info(ctx, "profile completed", "user_id", userID, "roles_seeded", seeded)
	if seeded == 0 {
		return p.Email, nil
	}

	s.metrics.Event(metrics.EventProfileCompleted)
	return p.Email, s.deliver(ctx, notify.Welcome(p.Email, p.FirstName))
}

// StartRecovery mails a recovery code for modes RecoveryForgotten and
// RecoveryResend, or the password-changed notice for RecoveryPasswordChanged.
func (s *AccountService) StartRecovery(ctx context.Context, email string, mode RecoveryMode) error {

	if !mode.Valid() {
		return common.Validation(fmt.Sprintf("unknown recovery mode %d", mode))
	}
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	if mode == RecoveryPasswordChanged {
		_, err := s.repomanager.Profiles(s.tx.Conn()).GetByEmail(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNoSuchUser
		}
		if err != nil {
			return sanitize(ctx, s.logger, "start recovery", err)
		}
		return s.deliver(ctx, notify.PasswordChanged(email))
	}

	var code, userID string
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repomanager.Profiles(tx).GetByEmail(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNoSuchUser
		}
		if err != nil {
			return fmt.Errorf("error searching profile: %w", err)
		}

		userID = p.UserID
		code, err = issueCode(ctx, s.codes, s.repomanager.Codes(tx, models.PurposeRecovery), p.UserID, s.now().Add(s.codeTTL))
		return err
	})
	if err != nil {
		return sanitize(ctx, s.logger, "start recovery", err)
	}

	s.metrics.Event(metrics.EventRecoveryStarted)
	s.logger.Info(ctx, "recovery started", "user_id", userID, "mode", int(mode))

	return s.deliver(ctx, notify.RecoveryCode(email, code, validityText(s.codeTTL), mode == RecoveryResend))
}

// CompleteRecovery consumes a recovery code and sets the new password in one
// transaction, then mails the password-changed notice.
func (s *AccountService) CompleteRecovery(ctx context.Context, code, password string) error {

	code = codegen.Normalize(code)
	if code == "" {
		return common.Validation("code is required")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if !codegen.WellFormed(code) {
		return common.ErrInvalidOrExpiredCode
	}

	hash, salt, err := cryptox.HashPassword(password)
	if err != nil {
		return sanitize(ctx, s.logger, "complete recovery", err)
	}

	var p *models.Profile
	err = s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		userID, err := s.repomanager.Codes(tx, models.PurposeRecovery).Consume(ctx, code, s.now())
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidOrExpiredCode
		}
		if err != nil {
			return fmt.Errorf("error consuming code: %w", err)
		}

		if err := s.repomanager.Users(tx).SetPassword(ctx, userID, hash, salt); err != nil {
			return fmt.Errorf("error setting password: %w", err)
		}

		p, err = s.repomanager.Profiles(tx).GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("error loading profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return sanitize(ctx, s.logger, "complete recovery", err)
	}

	s.metrics.Event(metrics.EventRecoveryCompleted)
	s.logger.Info(ctx, "recovery completed", "user_id", p.UserID)

	return s.deliver(ctx, notify.PasswordChanged(p.Email))
}

func (s *AccountService) CheckProfileCompleted(ctx context.Context, userID string) (bool, error) {

	if err := validateID("user id", userID); err != nil {
		return false, err
	}

	p, err := s.repomanager.Profiles(s.tx.Conn()).GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return false, common.ErrNoSuchUser
	}
	if err != nil {
		return false, sanitize(ctx, s.logger, "check profile", err)
	}

	return p.Completed(), nil
}
