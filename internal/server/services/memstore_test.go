package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/codes"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/companies"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/roles"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the schema. It enforces the same
// keys and unique indexes as the migration.
// unknownID is well formed but never issued by the store.
const unknownID = "0b1e4f5a-6c3d-4e2f-9a8b-7c6d5e4f3a2b"

type memStore struct {
	mu          sync.Mutex
	seq         int
	users       map[string]models.User
	profiles    map[string]models.Profile
	codes       map[models.CodePurpose]map[string]models.OneTimeCode
	companies   map[string]models.Company
	assignments []models.Assignment
	roles       []models.Role
	errs        map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]models.User{},
		profiles: map[string]models.Profile{},
		codes: map[models.CodePurpose]map[string]models.OneTimeCode{
			models.PurposeRegistration: {},
			models.PurposeRecovery:     {},
		},
		companies: map[string]models.Company{},
		errs:      map[string]error{},
	}
}

// failOn makes the named repository method return err.
func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

func (s *memStore) injected(op string) error {
	return s.errs[op]
}

// tick returns strictly increasing timestamps for created_at columns.
func (s *memStore) tick() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Millisecond)
}

type memSnapshot struct {
	users       map[string]models.User
	profiles    map[string]models.Profile
	codes       map[models.CodePurpose]map[string]models.OneTimeCode
	companies   map[string]models.Company
	assignments []models.Assignment
	roles       []models.Role
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		users:       make(map[string]models.User, len(s.users)),
		profiles:    make(map[string]models.Profile, len(s.profiles)),
		codes:       map[models.CodePurpose]map[string]models.OneTimeCode{},
		companies:   make(map[string]models.Company, len(s.companies)),
		assignments: append([]models.Assignment(nil), s.assignments...),
		roles:       append([]models.Role(nil), s.roles...),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.profiles {
		snap.profiles[k] = v
	}
	for purpose, m := range s.codes {
		cp := make(map[string]models.OneTimeCode, len(m))
		for k, v := range m {
			cp[k] = v
		}
		snap.codes[purpose] = cp
	}
	for k, v := range s.companies {
		snap.companies[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.profiles = snap.profiles
	s.codes = snap.codes
	s.companies = snap.companies
	s.assignments = snap.assignments
	s.roles = snap.roles
}

func (s *memStore) code(purpose models.CodePurpose, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[purpose][userID].Code
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) roleCount(masterUserID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.roles {
		if r.MasterUserID == masterUserID {
			n++
		}
	}
	return n
}

// memTx serializes transactions and rolls the store back when fn fails.
type memTx struct {
	mu    sync.Mutex
	store *memStore
}

type memDB struct{}

func (memDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("memDB: not a database")
}

func (memDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("memDB: not a database")
}

func (memDB) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func (t *memTx) Conn() dbx.DBTX { return memDB{} }

func (t *memTx) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(ctx, memDB{}); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type memManager struct {
	store *memStore
}

func (m *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memManager) Users(dbx.DBTX) users.Repository { return &memUsers{m.store} }

func (m *memManager) Profiles(dbx.DBTX) profiles.Repository { return &memProfiles{m.store} }

func (m *memManager) Codes(_ dbx.DBTX, purpose models.CodePurpose) codes.Repository {
	return &memCodes{store: m.store, purpose: purpose}
}

func (m *memManager) Companies(dbx.DBTX) companies.Repository { return &memCompanies{m.store} }

func (m *memManager) Roles(dbx.DBTX) roles.Repository { return &memRoles{m.store} }

type memUsers struct{ s *memStore }

func (r *memUsers) Create(context.Context) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.Create"); err != nil {
		return nil, err
	}
	now := r.s.tick()
	u := models.User{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	r.s.users[u.ID] = u
	return &u, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) SetPassword(_ context.Context, id string, hash, salt []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.SetPassword"); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash, u.PasswordSalt, u.UpdatedAt = hash, salt, r.s.tick()
	r.s.users[id] = u
	return nil
}

func (r *memUsers) SetInitialPassword(_ context.Context, id string, hash, salt []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.SetPassword"); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok || u.HasPassword() {
		return common.ErrNotFound
	}
	u.PasswordHash, u.PasswordSalt, u.UpdatedAt = hash, salt, r.s.tick()
	r.s.users[id] = u
	return nil
}

type memProfiles struct{ s *memStore }

func (r *memProfiles) emailTaken(email, exceptUserID string) bool {
	for _, p := range r.s.profiles {
		if !p.Deleted && p.UserID != exceptUserID && strings.EqualFold(p.Email, email) {
			return true
		}
	}
	return false
}

func (r *memProfiles) Create(_ context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("profiles.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[p.UserID]; !ok {
		return fmt.Errorf("%w: user_profiles_user_id_fkey", common.ErrNotFound)
	}
	if _, ok := r.s.profiles[p.UserID]; ok || r.emailTaken(p.Email, "") {
		return fmt.Errorf("%w: user_profiles_email_key", common.ErrConflict)
	}
	r.s.profiles[p.UserID] = *p
	return nil
}

func (r *memProfiles) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (r *memProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("profiles.GetByEmail"); err != nil {
		return nil, err
	}
	for _, p := range r.s.profiles {
		if !p.Deleted && strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memProfiles) Update(_ context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.profiles[p.UserID]
	if !ok || cur.Deleted {
		return common.ErrNotFound
	}
	if r.emailTaken(p.Email, p.UserID) {
		return fmt.Errorf("%w: user_profiles_email_key", common.ErrConflict)
	}
	next := *p
	next.Deleted = false
	r.s.profiles[p.UserID] = next
	return nil
}

func (r *memProfiles) SoftDelete(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok || p.Deleted {
		return common.ErrNotFound
	}
	p.Deleted = true
	r.s.profiles[userID] = p
	return nil
}

func (r *memProfiles) ListByMaster(_ context.Context, masterUserID, companyID string) ([]*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	var out []*models.Profile
	for _, a := range r.s.assignments {
		c := r.s.companies[a.CompanyID]
		if c.MasterUserID != masterUserID || (companyID != "" && c.ID != companyID) || seen[a.UserID] {
			continue
		}
		p, ok := r.s.profiles[a.UserID]
		if !ok || p.Deleted {
			continue
		}
		seen[a.UserID] = true
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type memCodes struct {
	store   *memStore
	purpose models.CodePurpose
}

func (r *memCodes) Issue(_ context.Context, userID, code string, expiresAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("codes.Issue"); err != nil {
		return err
	}
	if _, ok := r.store.users[userID]; !ok {
		return fmt.Errorf("%w: codes_user_id_fkey", common.ErrNotFound)
	}
	table := r.store.codes[r.purpose]
	delete(table, userID)
	for _, c := range table {
		if c.Code == code {
			return fmt.Errorf("%w: %s code already taken", common.ErrConflict, r.purpose)
		}
	}
	table[userID] = models.OneTimeCode{
		UserID: userID, Purpose: r.purpose, Code: code, ExpiresAt: expiresAt, CreatedAt: r.store.tick(),
	}
	return nil
}

func (r *memCodes) Consume(_ context.Context, code string, now time.Time) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	table := r.store.codes[r.purpose]
	for userID, c := range table {
		if c.Code != code {
			continue
		}
		if !c.Usable(now) {
			return "", common.ErrNotFound
		}
		consumed := now
		c.ConsumedAt = &consumed
		table[userID] = c
		return userID, nil
	}
	return "", common.ErrNotFound
}

func (r *memCodes) GetByUserID(_ context.Context, userID string) (*models.OneTimeCode, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.codes[r.purpose][userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

type memCompanies struct{ s *memStore }

func (r *memCompanies) Create(_ context.Context, c *models.Company) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[c.MasterUserID]; !ok {
		return nil, fmt.Errorf("%w: companies_master_user_id_fkey", common.ErrNotFound)
	}
	out := *c
	out.ID = uuid.NewString()
	out.CreatedAt = r.s.tick()
	r.s.companies[out.ID] = out
	return &out, nil
}

func (r *memCompanies) GetByID(_ context.Context, id string) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (r *memCompanies) Assign(_ context.Context, a *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, companyOK := r.s.companies[a.CompanyID]
	_, userOK := r.s.users[a.UserID]
	if !companyOK || !userOK {
		return fmt.Errorf("%w: company_users fkey", common.ErrNotFound)
	}
	for _, cur := range r.s.assignments {
		if cur.CompanyID == a.CompanyID && cur.UserID == a.UserID {
			return fmt.Errorf("%w: company_users_pkey", common.ErrConflict)
		}
	}
	a.CreatedAt = r.s.tick()
	r.s.assignments = append(r.s.assignments, *a)
	return nil
}

func (r *memCompanies) GetAssignment(_ context.Context, companyID, userID string) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.CompanyID == companyID && a.UserID == userID {
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memCompanies) memberships(userID string) []models.Assignment {
	var out []models.Assignment
	for _, a := range r.s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CompanyID < out[j].CompanyID
	})
	return out
}

func (r *memCompanies) ListMemberships(_ context.Context, userID string) ([]*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Assignment
	for _, a := range r.memberships(userID) {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

func (r *memCompanies) FirstMembership(_ context.Context, userID string) (*models.MasterContext, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.memberships(userID)
	if len(list) == 0 {
		return nil, common.ErrNotFound
	}
	c := r.s.companies[list[0].CompanyID]
	return &models.MasterContext{MasterUserID: c.MasterUserID, CompanyID: c.ID}, nil
}

func (r *memCompanies) FirstOwned(_ context.Context, userID string) (*models.MasterContext, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var first *models.Company
	for _, c := range r.s.companies {
		if c.MasterUserID != userID {
			continue
		}
		if first == nil || c.CreatedAt.Before(first.CreatedAt) {
			c := c
			first = &c
		}
	}
	if first == nil {
		return nil, common.ErrNotFound
	}
	return &models.MasterContext{MasterUserID: userID, CompanyID: first.ID}, nil
}

type memRoles struct{ s *memStore }

func (r *memRoles) Seed(_ context.Context, masterUserID string, levels []models.AccessLevel) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, level := range levels {
		exists := false
		for _, role := range r.s.roles {
			if role.MasterUserID == masterUserID && role.AccessLevel == level {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		r.s.roles = append(r.s.roles, models.Role{
			ID: uuid.NewString(), MasterUserID: masterUserID, Name: level.String(), AccessLevel: level,
		})
		n++
	}
	return n, nil
}

func (r *memRoles) ListByMaster(_ context.Context, masterUserID string) ([]*models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Role
	for _, role := range r.s.roles {
		if role.MasterUserID == masterUserID {
			role := role
			out = append(out, &role)
		}
	}
	return out, nil
}

// recordingNotifier keeps every message; err makes Send fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) (notify.Ack, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return notify.Ack{}, n.err
	}
	n.sent = append(n.sent, msg)
	return notify.Ack{ID: fmt.Sprintf("msg-%d", len(n.sent))}, nil
}

func (n *recordingNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *recordingNotifier) subjects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Subject)
	}
	return out
}

func (n *recordingNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return notify.Message{}
	}
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	accounts *AccountService
	tenants  *TenantService
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "test-secret-key",
		AccessTokenValidityDuration: 15 * time.Minute,
		CodeValidityDuration:        30 * time.Minute,
	}
}

func newFixture() *fixture {
	store := newMemStore()
	tx := &memTx{store: store}
	m := &memManager{store: store}
	n := &recordingNotifier{}
	mt := metrics.New()
	cfg := testConfig()

	tenants := NewTenantService(tx, m, n, cfg, logging.NopLogger{}, mt)
	accounts := NewAccountService(tx, m, tenants, n, cfg, logging.NopLogger{}, mt)

	return &fixture{store: store, notifier: n, metrics: mt, accounts: accounts, tenants: tenants}
}

// activeUser registers email, confirms it and sets password.
func (f *fixture) activeUser(ctx context.Context, email, password string) (string, error) {
	res, err := f.accounts.StartRegistration(ctx, email)
	if err != nil {
		return "", err
	}
	conf, err := f.accounts.ConfirmRegistration(ctx, f.store.code(models.PurposeRegistration, res.UserID))
	if err != nil {
		return "", err
	}
	return conf.UserID, f.accounts.SetPassword(ctx, conf.UserID, password)
}
