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
	"github.com/dmitrijs2005/accountkeeper/internal/server/codegen"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
)

// MemberInput describes a user created by a company administrator. An empty
// Password creates a pending account and mails an invitation code.
type MemberInput struct {
	CompanyID   string
	Email       string
	Password    string
	AccessLevel models.AccessLevel
	Profile     ProfileInput
}

type MemberResult struct {
	UserID string
	Active bool
}

type TenantService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	codes       *codegen.Generator
	mailer
	logger  logging.Logger
	metrics *metrics.Metrics
	codeTTL time.Duration
	now     func() time.Time
}

func NewTenantService(tx dbx.Transactor, m repomanager.RepositoryManager, n notify.Notifier,
	cfg *config.Config, l logging.Logger, mt *metrics.Metrics) *TenantService {

	logger := l.With("module", "tenants")
	return &TenantService{
		tx:          tx,
		repomanager: m,
		codes:       codegen.New(),
		mailer:      mailer{notifier: n, logger: logger, metrics: mt},
		logger:      logger,
		metrics:     mt,
		codeTTL:     cfg.CodeValidityDuration,
		now:         time.Now,
	}
}

// ResolveMasterCompany returns the tenant a user acts in. The earliest
// membership wins, ties broken by company id; a user without memberships
// acts in the earliest company they own, or as their own master.
func (s *TenantService) ResolveMasterCompany(ctx context.Context, userID string) (*models.MasterContext, error) {

	repo := s.repomanager.Companies(s.tx.Conn())

	mc, err := repo.FirstMembership(ctx, userID)
	if err == nil {
		return mc, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, sanitize(ctx, s.logger, "resolve master company", err)
	}

	mc, err = repo.FirstOwned(ctx, userID)
	if err == nil {
		return mc, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, sanitize(ctx, s.logger, "resolve master company", err)
	}

	return &models.MasterContext{MasterUserID: userID}, nil
}

func (s *TenantService) CreateCompany(ctx context.Context, masterUserID, name string) (*models.Company, error) {

	if err := validateID("master user id", masterUserID); err != nil {
		return nil, err
	}
	if err := validation.Validate(name, validation.Required, validation.Length(1, 200)); err != nil {
		return nil, common.Validation("name " + err.Error())
	}

	conn := s.tx.Conn()

	u, err := s.repomanager.Users(conn).GetByID(ctx, masterUserID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNoSuchUser
	}
	if err != nil {
		return nil, sanitize(ctx, s.logger, "create company", err)
	}
	if !u.HasPassword() {
		return nil, common.ErrNotActive
	}

	c, err := s.repomanager.Companies(conn).Create(ctx, &models.Company{Name: name, MasterUserID: masterUserID})
	if err != nil {
		return nil, sanitize(ctx, s.logger, "create company", err)
	}

	s.logger.Info(ctx, "company created", "company_id", c.ID, "master_user_id", masterUserID)
	return c, nil
}

// AssignUserToCompany adds userID to companyID at level.
func (s *TenantService) AssignUserToCompany(ctx context.Context, companyID, userID string, level models.AccessLevel) error {

	if err := validateID("company id", companyID); err != nil {
		return err
	}
	if err := validateID("user id", userID); err != nil {
		return err
	}
	if !level.Valid() {
		return common.Validation(fmt.Sprintf("unknown access level %d", int(level)))
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.assign(ctx, tx, companyID, userID, level)
	})
	if err != nil {
		return sanitize(ctx, s.logger, "assign user", err)
	}

	s.metrics.Event(metrics.EventAssignmentCreated)
	s.logger.Info(ctx, "user assigned", "company_id", companyID, "user_id", userID, "access_level", level.String())
	return nil
}

func (s *TenantService) assign(ctx context.Context, tx dbx.DBTX, companyID, userID string, level models.AccessLevel) error {

	repo := s.repomanager.Companies(tx)

	_, err := repo.GetByID(ctx, companyID)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrNoSuchCompany
	}
	if err != nil {
		return fmt.Errorf("error loading company: %w", err)
	}

	err = repo.Assign(ctx, &models.Assignment{CompanyID: companyID, UserID: userID, AccessLevel: level})
	switch {
	case errors.Is(err, common.ErrConflict):
		return common.ErrDuplicateAssignment
	case errors.Is(err, common.ErrNotFound):
		return common.ErrNoSuchUser
	case err != nil:
		return fmt.Errorf("error assigning user: %w", err)
	}
	return nil
}

// ListCompanyMembers returns live member profiles of the companies owned by
// masterUserID, optionally narrowed to companyID.
func (s *TenantService) ListCompanyMembers(ctx context.Context, masterUserID, companyID string) ([]*models.Profile, error) {

	if err := validateID("master user id", masterUserID); err != nil {
		return nil, err
	}

	conn := s.tx.Conn()

	if companyID != "" {
		if err := validateID("company id", companyID); err != nil {
			return nil, err
		}
		c, err := s.repomanager.Companies(conn).GetByID(ctx, companyID)
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNoSuchCompany
		}
		if err != nil {
			return nil, sanitize(ctx, s.logger, "list members", err)
		}
		if c.MasterUserID != masterUserID {
			return nil, common.ErrForbidden
		}
	}

	list, err := s.repomanager.Profiles(conn).ListByMaster(ctx, masterUserID, companyID)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "list members", err)
	}
	return list, nil
}

// CreateCompanyMember creates the user, its profile and its assignment in
// one transaction.
func (s *TenantService) CreateCompanyMember(ctx context.Context, in MemberInput) (*MemberResult, error) {

	if err := validateID("company id", in.CompanyID); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !in.AccessLevel.Valid() {
		return nil, common.Validation(fmt.Sprintf("unknown access level %d", int(in.AccessLevel)))
	}
	if err := in.Profile.Validate(); err != nil {
		return nil, err
	}

	active := in.Password != ""
	var hash, salt []byte
	if active {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		var err error
		if hash, salt, err = cryptox.HashPassword(in.Password); err != nil {
			return nil, sanitize(ctx, s.logger, "create member", err)
		}
	}

	var userID, code string
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		profiles := s.repomanager.Profiles(tx)
		users := s.repomanager.Users(tx)

		_, err := profiles.GetByEmail(ctx, email)
		if err == nil {
			return common.ErrDuplicateEmail
		}
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("error searching profile: %w", err)
		}

		u, err := users.Create(ctx)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		userID = u.ID

		if active {
			if err := users.SetPassword(ctx, u.ID, hash, salt); err != nil {
				return fmt.Errorf("error setting password: %w", err)
			}
		}

		p := &models.Profile{UserID: u.ID, Email: email}
		in.Profile.apply(p)
		err = profiles.Create(ctx, p)
		if errors.Is(err, common.ErrConflict) {
			return common.ErrDuplicateEmail
		}
		if err != nil {
			return fmt.Errorf("error creating profile: %w", err)
		}

		if err := s.assign(ctx, tx, in.CompanyID, u.ID, in.AccessLevel); err != nil {
			return err
		}

		if !active {
			code, err = issueCode(ctx, s.codes, s.repomanager.Codes(tx, models.PurposeRegistration), u.ID, s.now().Add(s.codeTTL))
		}
		return err
	})
	if err != nil {
		return nil, sanitize(ctx, s.logger, "create member", err)
	}

	s.metrics.Event(metrics.EventMemberCreated)
	s.logger.Info(ctx, "member created", "company_id", in.CompanyID, "user_id", userID, "active", active)

	res := &MemberResult{UserID: userID, Active: active}
	if active {
		return res, nil
	}
	return res, s.deliver(ctx, notify.Invitation(email, code, validityText(s.codeTTL)))
}

// UpdateMemberProfile edits a live profile. An empty email keeps the current
// one.
func (s *TenantService) UpdateMemberProfile(ctx context.Context, userID, email string, in ProfileInput) error {

	if err := validateID("user id", userID); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}
	if err := in.Validate(); err != nil {
		return err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		profiles := s.repomanager.Profiles(tx)

		p, err := profiles.GetByUserID(ctx, userID)
		if errors.Is(err, common.ErrNotFound) || (err == nil && p.Deleted) {
			return common.ErrNoSuchUser
		}
		if err != nil {
			return fmt.Errorf("error loading profile: %w", err)
		}

		if email != "" {
			p.Email = email
		}
		in.apply(p)

		err = profiles.Update(ctx, p)
		switch {
		case errors.Is(err, common.ErrConflict):
			return common.ErrDuplicateEmail
		case errors.Is(err, common.ErrNotFound):
			return common.ErrNoSuchUser
		case err != nil:
			return fmt.Errorf("error updating profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return sanitize(ctx, s.logger, "update member", err)
	}

	s.logger.Info(ctx, "member profile updated", "user_id", userID)
	return nil
}

// DeactivateMember soft-deletes the profile, which frees its email.
func (s *TenantService) DeactivateMember(ctx context.Context, userID string) error {

	if err := validateID("user id", userID); err != nil {
		return err
	}

	err := s.repomanager.Profiles(s.tx.Conn()).SoftDelete(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrNoSuchUser
	}
	if err != nil {
		return sanitize(ctx, s.logger, "deactivate member", err)
	}

	s.logger.Info(ctx, "member deactivated", "user_id", userID)
	return nil
}

// GetAccessLevel reports the level of userID in companyID. The master of the
// company is Admin; a non-member gets AccessNone.
func (s *TenantService) GetAccessLevel(ctx context.Context, companyID, userID string) (models.AccessLevel, error) {

	if err := validateID("company id", companyID); err != nil {
		return models.AccessNone, err
	}
	if err := validateID("user id", userID); err != nil {
		return models.AccessNone, err
	}

	repo := s.repomanager.Companies(s.tx.Conn())

	c, err := repo.GetByID(ctx, companyID)
	if errors.Is(err, common.ErrNotFound) {
		return models.AccessNone, common.ErrNoSuchCompany
	}
	if err != nil {
		return models.AccessNone, sanitize(ctx, s.logger, "get access level", err)
	}
	if c.MasterUserID == userID {
		return models.AccessAdmin, nil
	}

	a, err := repo.GetAssignment(ctx, companyID, userID)
	if errors.Is(err, common.ErrNotFound) {
		return models.AccessNone, nil
	}
	if err != nil {
		return models.AccessNone, sanitize(ctx, s.logger, "get access level", err)
	}
	return a.AccessLevel, nil
}

// CanManageMember allows callers to edit themselves, and Admins of any
// company the member belongs to.
func (s *TenantService) CanManageMember(ctx context.Context, callerID, memberID string) error {

	if err := validateID("user id", memberID); err != nil {
		return err
	}
	if callerID == memberID {
		return nil
	}

	memberships, err := s.repomanager.Companies(s.tx.Conn()).ListMemberships(ctx, memberID)
	if err != nil {
		return sanitize(ctx, s.logger, "check member access", err)
	}

	for _, m := range memberships {
		level, err := s.GetAccessLevel(ctx, m.CompanyID, callerID)
		if err != nil {
			return err
		}
		if level.IsAtLeast(models.AccessAdmin) {
			return nil
		}
	}
	return common.ErrForbidden
}
