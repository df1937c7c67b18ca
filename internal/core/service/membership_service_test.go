package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// memStore implements ports.UserRepository and ports.CompanyRepository in
// memory with per-call failure injection, mirroring how the real store can
// fail between the independently committed statements of a saga.
type memStore struct {
	users     map[string]*domain.User
	companies map[string]*domain.Company
	version   int

	// failure injection
	failUpdateRoleFor    map[string]bool // key: "<user id>:<new role>"
	failSetOwner         bool
	conflictSetOwnerOnce bool
	failSetManagerBind   bool // fail SetManager with a non-nil manager id
	failSetManagerClear  bool // fail SetManager clearing the pointer
	failDeleteUser       bool
	failCreateUserTimes  int // fail the next N user inserts
}

func newMemStore() *memStore {
	return &memStore{
		users:             make(map[string]*domain.User),
		companies:         make(map[string]*domain.Company),
		failUpdateRoleFor: make(map[string]bool),
	}
}

func strPtr(s string) *string { return &s }

func (m *memStore) addUser(id, authID, role, companyID string) *domain.User {
	u := &domain.User{ID: id, Email: id + "@acme.com", Name: id, Role: role}
	if authID != "" {
		u.AuthID = strPtr(authID)
	}
	if companyID != "" {
		u.CompanyID = strPtr(companyID)
	}
	m.users[id] = u
	return u
}

func (m *memStore) addCompany(id string, ownerID, managerID *string) *domain.Company {
	m.version++
	c := &domain.Company{
		ID:        id,
		Name:      "Acme",
		Domain:    "acme.com",
		OwnerID:   ownerID,
		ManagerID: managerID,
		UpdatedAt: fmt.Sprintf("v%d", m.version),
	}
	m.companies[id] = c
	return c
}

func (m *memStore) bump(c *domain.Company) {
	m.version++
	c.UpdatedAt = fmt.Sprintf("v%d", m.version)
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	return &clone
}

func cloneCompany(c *domain.Company) *domain.Company {
	clone := *c
	return &clone
}

// --- ports.UserRepository ---

func (m *memStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NotFound(domain.CodeUserNotFound, "user not found")
	}
	return cloneUser(u), nil
}

func (m *memStore) FindByAuthID(_ context.Context, authID string) (*domain.User, error) {
	for _, u := range m.users {
		if u.AuthID != nil && *u.AuthID == authID {
			return cloneUser(u), nil
		}
	}
	return nil, domain.NotFound(domain.CodeUserNotFound, "user not found")
}

func (m *memStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if m.failCreateUserTimes > 0 {
		m.failCreateUserTimes--
		return nil, domain.Internal(domain.CodeInternal, "create user: injected failure")
	}
	m.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (m *memStore) UpdateRole(_ context.Context, id, role string) error {
	if m.failUpdateRoleFor[id+":"+role] {
		return domain.Internal(domain.CodeInternal, "update user role: injected failure")
	}
	u, ok := m.users[id]
	if !ok {
		return domain.NotFound(domain.CodeUserNotFound, "user not found")
	}
	u.Role = role
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if m.failDeleteUser {
		return domain.Internal(domain.CodeInternal, "delete user: injected failure")
	}
	delete(m.users, id)
	return nil
}

// --- ports.CompanyRepository ---

func (m *memStore) findCompany(id string) (*domain.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, domain.NotFound(domain.CodeCompanyNotFound, "company not found")
	}
	return cloneCompany(c), nil
}

func (m *memStore) FindByDomain(_ context.Context, companyDomain string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.Domain == companyDomain {
			return cloneCompany(c), nil
		}
	}
	return nil, domain.NotFound(domain.CodeCompanyNotFound, "company not found")
}

func (m *memStore) CreateCompany(_ context.Context, company *domain.Company) (*domain.Company, error) {
	m.version++
	clone := cloneCompany(company)
	clone.UpdatedAt = fmt.Sprintf("v%d", m.version)
	m.companies[clone.ID] = clone
	return cloneCompany(clone), nil
}

func (m *memStore) DeleteCompany(_ context.Context, id string) error {
	delete(m.companies, id)
	return nil
}

func (m *memStore) SetOwner(_ context.Context, id, ownerID, expectedUpdatedAt string) error {
	if m.conflictSetOwnerOnce {
		m.conflictSetOwnerOnce = false
		return domain.Conflict(domain.CodeConcurrentUpdate, "company was modified concurrently")
	}
	if m.failSetOwner {
		return domain.Internal(domain.CodeInternal, "set company owner: injected failure")
	}
	c, ok := m.companies[id]
	if !ok {
		return domain.NotFound(domain.CodeCompanyNotFound, "company not found")
	}
	if expectedUpdatedAt != "" && expectedUpdatedAt != c.UpdatedAt {
		return domain.Conflict(domain.CodeConcurrentUpdate, "company was modified concurrently")
	}
	c.OwnerID = strPtr(ownerID)
	m.bump(c)
	return nil
}

func (m *memStore) SetManager(_ context.Context, id string, managerID *string, expectedUpdatedAt string) error {
	if managerID != nil && m.failSetManagerBind {
		return domain.Internal(domain.CodeInternal, "set company manager: injected failure")
	}
	if managerID == nil && m.failSetManagerClear {
		return domain.Internal(domain.CodeInternal, "set company manager: injected failure")
	}
	c, ok := m.companies[id]
	if !ok {
		return domain.NotFound(domain.CodeCompanyNotFound, "company not found")
	}
	if expectedUpdatedAt != "" && expectedUpdatedAt != c.UpdatedAt {
		return domain.Conflict(domain.CodeConcurrentUpdate, "company was modified concurrently")
	}
	c.ManagerID = managerID
	m.bump(c)
	return nil
}

// companyRepo adapts memStore to ports.CompanyRepository (Create/Delete
// collide with the user methods on the shared struct).
type companyRepo struct{ *memStore }

func (r companyRepo) FindByID(ctx context.Context, id string) (*domain.Company, error) {
	return r.memStore.findCompany(id)
}

func (r companyRepo) Create(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	return r.memStore.CreateCompany(ctx, company)
}

func (r companyRepo) Delete(ctx context.Context, id string) error {
	return r.memStore.DeleteCompany(ctx, id)
}

type stubJournal struct {
	entries []domain.Reconciliation
}

func (j *stubJournal) Record(_ context.Context, entry domain.Reconciliation) error {
	j.entries = append(j.entries, entry)
	return nil
}

type stubLocker struct {
	held     map[string]bool
	acquired []string
	released []string
}

func (l *stubLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.held[key] {
		return "", false, nil
	}
	l.acquired = append(l.acquired, key)
	return "tok", true, nil
}

func (l *stubLocker) Release(_ context.Context, key, _ string) error {
	l.released = append(l.released, key)
	return nil
}

func newTestService(store *memStore) (*MembershipService, *stubJournal) {
	journal := &stubJournal{}
	svc := NewMembershipService(store, companyRepo{store}, nil, journal, zerolog.Nop())
	return svc, journal
}

func expectCode(t *testing.T, err error, kind domain.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s/%s, got nil", kind, code)
	}
	if domain.KindOf(err) != kind || domain.CodeOf(err) != code {
		t.Fatalf("expected %s/%s, got %s/%s (%v)", kind, code, domain.KindOf(err), domain.CodeOf(err), err)
	}
}

// --- ClaimOwnership ---

func TestClaimOwnership_Success(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	svc, _ := newTestService(store)

	err := svc.ClaimOwnership(context.Background(), domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"})
	if err != nil {
		t.Fatalf("ClaimOwnership returned error: %v", err)
	}

	if store.users["u1"].Role != domain.RoleOwner {
		t.Fatalf("expected u1 role owner, got %s", store.users["u1"].Role)
	}
	c := store.companies["c1"]
	if c.OwnerID == nil || *c.OwnerID != "u1" {
		t.Fatalf("expected owner_id u1, got %v", c.OwnerID)
	}
	owners := 0
	for _, u := range store.users {
		if u.Role == domain.RoleOwner && u.BelongsTo("c1") {
			owners++
		}
	}
	if owners != 1 {
		t.Fatalf("expected exactly one owner, got %d", owners)
	}
}

func TestClaimOwnership_SecondClaimConflicts(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	store.addUser("u2", "auth-2", domain.RoleMember, "c1")
	svc, _ := newTestService(store)

	ctx := context.Background()
	if err := svc.ClaimOwnership(ctx, domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"}); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	err := svc.ClaimOwnership(ctx, domain.Principal{ID: "auth-2"},
		ports.ClaimOwnershipInput{UserID: "u2", CompanyID: "c1"})
	expectCode(t, err, domain.KindConflict, domain.CodeAlreadyOwned)
}

func TestClaimOwnership_Preconditions(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addCompany("c2", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	svc, _ := newTestService(store)
	ctx := context.Background()

	err := svc.ClaimOwnership(ctx, domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "ghost", CompanyID: "c1"})
	expectCode(t, err, domain.KindNotFound, domain.CodeUserNotFound)

	err = svc.ClaimOwnership(ctx, domain.Principal{ID: "someone-else"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"})
	expectCode(t, err, domain.KindForbidden, domain.CodeMismatch)

	err = svc.ClaimOwnership(ctx, domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c2"})
	expectCode(t, err, domain.KindForbidden, domain.CodeWrongCompany)

	err = svc.ClaimOwnership(ctx, domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "missing"})
	expectCode(t, err, domain.KindForbidden, domain.CodeWrongCompany)
}

func TestClaimOwnership_BindFailureRollsBackRole(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	store.failSetOwner = true
	svc, _ := newTestService(store)

	err := svc.ClaimOwnership(context.Background(), domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"})
	expectCode(t, err, domain.KindInternal, domain.CodeRolledBack)

	if store.users["u1"].Role != domain.RoleMember {
		t.Fatalf("expected role rolled back to member, got %s", store.users["u1"].Role)
	}
	if store.companies["c1"].OwnerID != nil {
		t.Fatalf("expected owner_id still nil")
	}
}

func TestClaimOwnership_RollbackFailureIsJournalled(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	store.failSetOwner = true
	store.failUpdateRoleFor["u1:member"] = true // compensating demote fails
	svc, journal := newTestService(store)

	err := svc.ClaimOwnership(context.Background(), domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"})
	expectCode(t, err, domain.KindInternal, domain.CodeReconcileRequired)

	if len(journal.entries) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(journal.entries))
	}
	entry := journal.entries[0]
	if entry.Operation != "claim_ownership" || entry.Step != "promote_user_to_owner" {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
	// The inconsistent state the journal points at: promoted user, unbound company.
	if store.users["u1"].Role != domain.RoleOwner {
		t.Fatalf("expected role stuck at owner, got %s", store.users["u1"].Role)
	}
}

func TestClaimOwnership_RetriesOnConcurrentModification(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	store.conflictSetOwnerOnce = true
	svc, _ := newTestService(store)

	err := svc.ClaimOwnership(context.Background(), domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if store.users["u1"].Role != domain.RoleOwner {
		t.Fatalf("expected u1 promoted after retry, got %s", store.users["u1"].Role)
	}
}

func TestClaimOwnership_LockContention(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	locker := &stubLocker{held: map[string]bool{"company-lock:c1": true}}
	svc := NewMembershipService(store, companyRepo{store}, locker, nil, zerolog.Nop())

	err := svc.ClaimOwnership(context.Background(), domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"})
	expectCode(t, err, domain.KindConflict, domain.CodeConcurrentUpdate)
	if store.users["u1"].Role != domain.RoleMember {
		t.Fatalf("no write should have happened under contention")
	}
}

// --- AssignManager ---

func ownedCompany(store *memStore) {
	store.addCompany("c1", strPtr("u1"), nil)
	store.addUser("u1", "auth-1", domain.RoleOwner, "c1")
	store.addUser("u2", "auth-2", domain.RoleMember, "c1")
	store.addUser("u3", "auth-3", domain.RoleMember, "c1")
}

func TestAssignManager_FirstManager(t *testing.T) {
	store := newMemStore()
	ownedCompany(store)
	svc, _ := newTestService(store)

	err := svc.AssignManager(context.Background(), domain.Principal{ID: "auth-1"},
		ports.AssignManagerInput{UserID: "u2", CompanyID: "c1"})
	if err != nil {
		t.Fatalf("AssignManager returned error: %v", err)
	}

	if store.users["u2"].Role != domain.RoleManager {
		t.Fatalf("expected u2 manager, got %s", store.users["u2"].Role)
	}
	c := store.companies["c1"]
	if c.ManagerID == nil || *c.ManagerID != "u2" {
		t.Fatalf("expected manager_id u2, got %v", c.ManagerID)
	}
}

func TestAssignManager_ReplacesPreviousManager(t *testing.T) {
	store := newMemStore()
	ownedCompany(store)
	svc, _ := newTestService(store)
	ctx := context.Background()
	principal := domain.Principal{ID: "auth-1"}

	if err := svc.AssignManager(ctx, principal, ports.AssignManagerInput{UserID: "u2", CompanyID: "c1"}); err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}
	if err := svc.AssignManager(ctx, principal, ports.AssignManagerInput{UserID: "u3", CompanyID: "c1"}); err != nil {
		t.Fatalf("second assignment failed: %v", err)
	}

	if store.users["u2"].Role != domain.RoleMember {
		t.Fatalf("expected previous manager demoted to member, got %s", store.users["u2"].Role)
	}
	if store.users["u3"].Role != domain.RoleManager {
		t.Fatalf("expected u3 manager, got %s", store.users["u3"].Role)
	}
	c := store.companies["c1"]
	if c.ManagerID == nil || *c.ManagerID != "u3" {
		t.Fatalf("expected manager_id u3, got %v", c.ManagerID)
	}

	managers := 0
	for _, u := range store.users {
		if u.Role == domain.RoleManager && u.BelongsTo("c1") {
			managers++
		}
	}
	if managers != 1 {
		t.Fatalf("expected exactly one manager, got %d", managers)
	}
}

func TestAssignManager_Preconditions(t *testing.T) {
	store := newMemStore()
	ownedCompany(store)
	store.addCompany("c2", nil, nil)
	store.addUser("x1", "auth-x", domain.RoleMember, "c2")
	svc, _ := newTestService(store)
	ctx := context.Background()

	// non-owner requester
	err := svc.AssignManager(ctx, domain.Principal{ID: "auth-2"},
		ports.AssignManagerInput{UserID: "u3", CompanyID: "c1"})
	expectCode(t, err, domain.KindForbidden, domain.CodeNotOwner)

	// unknown requester
	err = svc.AssignManager(ctx, domain.Principal{ID: "auth-ghost"},
		ports.AssignManagerInput{UserID: "u2", CompanyID: "c1"})
	expectCode(t, err, domain.KindForbidden, domain.CodeNotOwner)

	// requester from another company
	err = svc.AssignManager(ctx, domain.Principal{ID: "auth-1"},
		ports.AssignManagerInput{UserID: "x1", CompanyID: "c2"})
	expectCode(t, err, domain.KindForbidden, domain.CodeWrongCompany)

	// target in another company
	err = svc.AssignManager(ctx, domain.Principal{ID: "auth-1"},
		ports.AssignManagerInput{UserID: "x1", CompanyID: "c1"})
	expectCode(t, err, domain.KindForbidden, domain.CodeWrongCompany)

	// missing target
	err = svc.AssignManager(ctx, domain.Principal{ID: "auth-1"},
		ports.AssignManagerInput{UserID: "ghost", CompanyID: "c1"})
	expectCode(t, err, domain.KindNotFound, domain.CodeUserNotFound)

	// target is the owner
	err = svc.AssignManager(ctx, domain.Principal{ID: "auth-1"},
		ports.AssignManagerInput{UserID: "u1", CompanyID: "c1"})
	expectCode(t, err, domain.KindBadRequest, domain.CodeCannotDemoteOwner)
}

func TestAssignManager_BindFailureRestoresBothRoles(t *testing.T) {
	store := newMemStore()
	ownedCompany(store)
	svc, _ := newTestService(store)
	ctx := context.Background()
	principal := domain.Principal{ID: "auth-1"}

	if err := svc.AssignManager(ctx, principal, ports.AssignManagerInput{UserID: "u2", CompanyID: "c1"}); err != nil {
		t.Fatalf("setup assignment failed: %v", err)
	}

	// u2 is manager; repointing to u3 fails at the company write after both
	// role updates succeeded.
	store.failSetManagerBind = true
	err := svc.AssignManager(ctx, principal, ports.AssignManagerInput{UserID: "u3", CompanyID: "c1"})
	expectCode(t, err, domain.KindInternal, domain.CodeRolledBack)

	if store.users["u2"].Role != domain.RoleManager {
		t.Fatalf("expected previous manager restored, got %s", store.users["u2"].Role)
	}
	if store.users["u3"].Role != domain.RoleMember {
		t.Fatalf("expected target restored to member, got %s", store.users["u3"].Role)
	}
	c := store.companies["c1"]
	if c.ManagerID == nil || *c.ManagerID != "u2" {
		t.Fatalf("expected manager_id unchanged at u2, got %v", c.ManagerID)
	}
}

func TestAssignManager_PromoteFailureRestoresPreviousManager(t *testing.T) {
	store := newMemStore()
	ownedCompany(store)
	svc, _ := newTestService(store)
	ctx := context.Background()
	principal := domain.Principal{ID: "auth-1"}

	if err := svc.AssignManager(ctx, principal, ports.AssignManagerInput{UserID: "u2", CompanyID: "c1"}); err != nil {
		t.Fatalf("setup assignment failed: %v", err)
	}

	store.failUpdateRoleFor["u3:manager"] = true
	err := svc.AssignManager(ctx, principal, ports.AssignManagerInput{UserID: "u3", CompanyID: "c1"})
	expectCode(t, err, domain.KindInternal, domain.CodeRolledBack)

	if store.users["u2"].Role != domain.RoleManager {
		t.Fatalf("expected previous manager restored, got %s", store.users["u2"].Role)
	}
	if store.users["u3"].Role != domain.RoleMember {
		t.Fatalf("expected target untouched, got %s", store.users["u3"].Role)
	}
}

// --- DeleteUser ---

func deletionCompany(store *memStore) {
	store.addCompany("c1", strPtr("owner1"), strPtr("mgr1"))
	store.addUser("owner1", "auth-owner", domain.RoleOwner, "c1")
	store.addUser("mgr1", "auth-mgr1", domain.RoleManager, "c1")
	store.addUser("mgr2", "auth-mgr2", domain.RoleManager, "c1")
	store.addUser("mem1", "auth-mem1", domain.RoleMember, "c1")
	store.addUser("mem2", "auth-mem2", domain.RoleMember, "c1")
}

func TestDeleteUser_AuthorizationMatrix(t *testing.T) {
	cases := []struct {
		name      string
		requester string
		target    string
		wantKind  domain.Kind
		wantCode  string
	}{
		{"member deletes member", "auth-mem1", "mem2", domain.KindForbidden, domain.CodeInsufficientRole},
		{"member deletes manager", "auth-mem1", "mgr1", domain.KindForbidden, domain.CodeInsufficientRole},
		{"manager deletes manager", "auth-mgr1", "mgr2", domain.KindForbidden, domain.CodeInsufficientRole},
		{"manager deletes member", "auth-mgr1", "mem1", "", ""},
		{"owner deletes manager", "auth-owner", "mgr1", "", ""},
		{"owner deletes member", "auth-owner", "mem1", "", ""},
		{"owner deletes owner", "auth-owner", "owner1", domain.KindBadRequest, domain.CodeCannotDeleteSelf},
		{"manager deletes owner", "auth-mgr1", "owner1", domain.KindForbidden, domain.CodeCannotDeleteOwner},
		{"self delete", "auth-mem1", "mem1", domain.KindBadRequest, domain.CodeCannotDeleteSelf},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			deletionCompany(store)
			svc, _ := newTestService(store)

			err := svc.DeleteUser(context.Background(), domain.Principal{ID: tc.requester},
				ports.DeleteUserInput{UserID: tc.target})
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if _, exists := store.users[tc.target]; exists {
					t.Fatalf("expected %s deleted", tc.target)
				}
				return
			}
			expectCode(t, err, tc.wantKind, tc.wantCode)
			if _, exists := store.users[tc.target]; !exists {
				t.Fatalf("target should not have been deleted")
			}
		})
	}
}

func TestDeleteUser_CrossCompany(t *testing.T) {
	store := newMemStore()
	deletionCompany(store)
	store.addCompany("c2", nil, nil)
	store.addUser("other", "auth-other", domain.RoleMember, "c2")
	svc, _ := newTestService(store)

	err := svc.DeleteUser(context.Background(), domain.Principal{ID: "auth-owner"},
		ports.DeleteUserInput{UserID: "other"})
	expectCode(t, err, domain.KindForbidden, domain.CodeCrossCompany)
}

func TestDeleteUser_ManagerDeletionClearsPointer(t *testing.T) {
	store := newMemStore()
	deletionCompany(store)
	svc, _ := newTestService(store)

	err := svc.DeleteUser(context.Background(), domain.Principal{ID: "auth-owner"},
		ports.DeleteUserInput{UserID: "mgr1"})
	if err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}

	if store.companies["c1"].ManagerID != nil {
		t.Fatalf("expected manager_id cleared, got %v", *store.companies["c1"].ManagerID)
	}
	if _, exists := store.users["mgr1"]; exists {
		t.Fatalf("expected mgr1 deleted")
	}
}

func TestDeleteUser_DeleteFailureRestoresManagerPointer(t *testing.T) {
	store := newMemStore()
	deletionCompany(store)
	store.failDeleteUser = true
	svc, _ := newTestService(store)

	err := svc.DeleteUser(context.Background(), domain.Principal{ID: "auth-owner"},
		ports.DeleteUserInput{UserID: "mgr1"})
	expectCode(t, err, domain.KindInternal, domain.CodeRolledBack)

	c := store.companies["c1"]
	if c.ManagerID == nil || *c.ManagerID != "mgr1" {
		t.Fatalf("expected manager_id restored to mgr1, got %v", c.ManagerID)
	}
	if _, exists := store.users["mgr1"]; !exists {
		t.Fatalf("mgr1 row should still exist")
	}
}

// --- UpdateRole ---

func TestUpdateRole_PromoteAndDemote(t *testing.T) {
	store := newMemStore()
	deletionCompany(store)
	svc, _ := newTestService(store)
	ctx := context.Background()
	owner := domain.Principal{ID: "auth-owner"}

	if err := svc.UpdateRole(ctx, owner, ports.UpdateRoleInput{UserID: "mem1", NewRole: domain.RoleManager}); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if store.users["mem1"].Role != domain.RoleManager {
		t.Fatalf("expected mem1 manager, got %s", store.users["mem1"].Role)
	}
	// Role toggles never touch the company pointer.
	if store.companies["c1"].ManagerID == nil || *store.companies["c1"].ManagerID != "mgr1" {
		t.Fatalf("manager_id must not change through role update")
	}

	if err := svc.UpdateRole(ctx, owner, ports.UpdateRoleInput{UserID: "mem1", NewRole: domain.RoleMember}); err != nil {
		t.Fatalf("demote failed: %v", err)
	}
	if store.users["mem1"].Role != domain.RoleMember {
		t.Fatalf("expected mem1 member again, got %s", store.users["mem1"].Role)
	}
}

func TestUpdateRole_Guards(t *testing.T) {
	store := newMemStore()
	deletionCompany(store)
	store.addCompany("c2", nil, nil)
	store.addUser("other", "auth-other", domain.RoleMember, "c2")
	svc, _ := newTestService(store)
	ctx := context.Background()

	// requester is not an owner
	err := svc.UpdateRole(ctx, domain.Principal{ID: "auth-mgr1"},
		ports.UpdateRoleInput{UserID: "mem1", NewRole: domain.RoleManager})
	expectCode(t, err, domain.KindForbidden, domain.CodeNotOwner)

	// cross-company target
	err = svc.UpdateRole(ctx, domain.Principal{ID: "auth-owner"},
		ports.UpdateRoleInput{UserID: "other", NewRole: domain.RoleManager})
	expectCode(t, err, domain.KindForbidden, domain.CodeCrossCompany)

	// target is the owner (regardless of requester)
	err = svc.UpdateRole(ctx, domain.Principal{ID: "auth-owner"},
		ports.UpdateRoleInput{UserID: "owner1", NewRole: domain.RoleMember})
	expectCode(t, err, domain.KindForbidden, domain.CodeCannotDemoteOwner)

	// invalid role value
	err = svc.UpdateRole(ctx, domain.Principal{ID: "auth-owner"},
		ports.UpdateRoleInput{UserID: "mem1", NewRole: "owner"})
	expectCode(t, err, domain.KindBadRequest, domain.CodeInvalidRole)
}

func TestLockIsReleasedAfterSaga(t *testing.T) {
	store := newMemStore()
	store.addCompany("c1", nil, nil)
	store.addUser("u1", "auth-1", domain.RoleMember, "c1")
	locker := &stubLocker{held: map[string]bool{}}
	svc := NewMembershipService(store, companyRepo{store}, locker, nil, zerolog.Nop())

	if err := svc.ClaimOwnership(context.Background(), domain.Principal{ID: "auth-1"},
		ports.ClaimOwnershipInput{UserID: "u1", CompanyID: "c1"}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(locker.acquired) != 1 || len(locker.released) != 1 {
		t.Fatalf("expected one acquire and one release, got %d/%d", len(locker.acquired), len(locker.released))
	}
}
