package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dnstld/desk-buddy-sub000/internal/api/metrics"
	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

const (
	// Conflicting sagas re-run the whole precondition check this many times
	// before giving up with a 409.
	maxConflictAttempts = 3
	companyLockTTL      = 10 * time.Second
	companyLockPrefix   = "company-lock:"
)

// MembershipService implements ports.MembershipService. All four operations
// follow the same shape: resolve and authorise the principal, check
// preconditions against freshly read rows, then apply the ordered writes as
// a compensated saga under an optional per-company lock.
type MembershipService struct {
	users     ports.UserRepository
	companies ports.CompanyRepository
	locker    ports.CompanyLocker        // nil disables locking
	journal   ports.ReconciliationJournal // nil disables the journal
	log       zerolog.Logger
}

func NewMembershipService(
	users ports.UserRepository,
	companies ports.CompanyRepository,
	locker ports.CompanyLocker,
	journal ports.ReconciliationJournal,
	log zerolog.Logger,
) *MembershipService {
	return &MembershipService{
		users:     users,
		companies: companies,
		locker:    locker,
		journal:   journal,
		log:       log,
	}
}

// ClaimOwnership promotes a member to owner of its own company and binds the
// company's owner_id, compensating the role change if the bind fails.
func (s *MembershipService) ClaimOwnership(ctx context.Context, principal domain.Principal, in ports.ClaimOwnershipInput) error {
	const operation = "claim_ownership"
	err := s.withCompanyLock(ctx, in.CompanyID, func(ctx context.Context) error {
		return s.retryOnConflict(ctx, func(ctx context.Context) error {
			return s.claimOwnershipOnce(ctx, principal, in)
		})
	})
	s.observe(operation, err)
	return err
}

func (s *MembershipService) claimOwnershipOnce(ctx context.Context, principal domain.Principal, in ports.ClaimOwnershipInput) error {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if user.AuthID == nil || *user.AuthID != principal.ID {
		return domain.Forbidden(domain.CodeMismatch, "user does not belong to the authenticated account")
	}
	if !user.BelongsTo(in.CompanyID) {
		return domain.Forbidden(domain.CodeWrongCompany, "user does not belong to this company")
	}

	company, err := s.companies.FindByID(ctx, in.CompanyID)
	if err != nil {
		return err
	}
	if company.OwnerID != nil {
		return domain.Conflict(domain.CodeAlreadyOwned, "company already has an owner")
	}

	previousRole := user.Role
	steps := []sagaStep{
		{
			name: "promote_user_to_owner",
			run: func(ctx context.Context) error {
				return s.users.UpdateRole(ctx, user.ID, domain.RoleOwner)
			},
			undo: func(ctx context.Context) error {
				return s.users.UpdateRole(ctx, user.ID, previousRole)
			},
		},
		{
			name: "bind_company_owner",
			run: func(ctx context.Context) error {
				return s.companies.SetOwner(ctx, company.ID, user.ID, company.UpdatedAt)
			},
		},
	}

	detail := map[string]string{"user_id": user.ID, "company_id": company.ID, "previous_role": previousRole}
	return runSaga(ctx, s.log, s.journal, "claim_ownership", detail, steps)
}

// AssignManager promotes a user to manager-of-record: any previous manager
// is demoted to member, the target is promoted, and the company's manager_id
// is repointed. Three writes, unwound in reverse on partial failure.
func (s *MembershipService) AssignManager(ctx context.Context, principal domain.Principal, in ports.AssignManagerInput) error {
	const operation = "assign_manager"
	err := s.withCompanyLock(ctx, in.CompanyID, func(ctx context.Context) error {
		return s.retryOnConflict(ctx, func(ctx context.Context) error {
			return s.assignManagerOnce(ctx, principal, in)
		})
	})
	s.observe(operation, err)
	return err
}

func (s *MembershipService) assignManagerOnce(ctx context.Context, principal domain.Principal, in ports.AssignManagerInput) error {
	requester, err := s.users.FindByAuthID(ctx, principal.ID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.Forbidden(domain.CodeNotOwner, "only the company owner can assign a manager")
		}
		return err
	}
	if requester.Role != domain.RoleOwner {
		return domain.Forbidden(domain.CodeNotOwner, "only the company owner can assign a manager")
	}
	if !requester.BelongsTo(in.CompanyID) {
		return domain.Forbidden(domain.CodeWrongCompany, "requester does not belong to this company")
	}

	target, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !target.BelongsTo(in.CompanyID) {
		return domain.Forbidden(domain.CodeWrongCompany, "user does not belong to this company")
	}
	if target.Role == domain.RoleOwner {
		return domain.BadRequest(domain.CodeCannotDemoteOwner, "the owner cannot be demoted to manager")
	}

	company, err := s.companies.FindByID(ctx, in.CompanyID)
	if err != nil {
		return err
	}

	// The previous manager, if any, is restored to "manager" when a later
	// step fails. A dangling manager_id (row already deleted) is treated as
	// no previous manager.
	var previous *domain.User
	if company.ManagerID != nil && *company.ManagerID != target.ID {
		previous, err = s.users.FindByID(ctx, *company.ManagerID)
		if err != nil {
			if domain.KindOf(err) != domain.KindNotFound {
				return err
			}
			previous = nil
		}
	}

	targetRole := target.Role
	var steps []sagaStep
	if previous != nil {
		prevID := previous.ID
		steps = append(steps, sagaStep{
			name: "demote_previous_manager",
			run: func(ctx context.Context) error {
				return s.users.UpdateRole(ctx, prevID, domain.RoleMember)
			},
			undo: func(ctx context.Context) error {
				return s.users.UpdateRole(ctx, prevID, domain.RoleManager)
			},
		})
	}
	steps = append(steps,
		sagaStep{
			name: "promote_target_to_manager",
			run: func(ctx context.Context) error {
				return s.users.UpdateRole(ctx, target.ID, domain.RoleManager)
			},
			undo: func(ctx context.Context) error {
				return s.users.UpdateRole(ctx, target.ID, targetRole)
			},
		},
		sagaStep{
			name: "bind_company_manager",
			run: func(ctx context.Context) error {
				return s.companies.SetManager(ctx, company.ID, &target.ID, company.UpdatedAt)
			},
		},
	)

	detail := map[string]string{"user_id": target.ID, "company_id": company.ID, "previous_role": targetRole}
	if previous != nil {
		detail["previous_manager_id"] = previous.ID
	}
	return runSaga(ctx, s.log, s.journal, "assign_manager", detail, steps)
}

// DeleteUser hard-deletes a user row. When the target is the company's
// manager-of-record, the company's manager_id is cleared first and restored
// if the delete fails. Authorisation: owners may delete managers and
// members, managers may delete members only, members may delete no one.
func (s *MembershipService) DeleteUser(ctx context.Context, principal domain.Principal, in ports.DeleteUserInput) error {
	const operation = "delete_user"
	err := s.deleteUserOnce(ctx, principal, in)
	s.observe(operation, err)
	return err
}

func (s *MembershipService) deleteUserOnce(ctx context.Context, principal domain.Principal, in ports.DeleteUserInput) error {
	requester, err := s.users.FindByAuthID(ctx, principal.ID)
	if err != nil {
		return err
	}
	target, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if requester.CompanyID == nil || target.CompanyID == nil || *requester.CompanyID != *target.CompanyID {
		return domain.Forbidden(domain.CodeCrossCompany, "user belongs to a different company")
	}
	if requester.ID == target.ID {
		return domain.BadRequest(domain.CodeCannotDeleteSelf, "you cannot delete your own account")
	}
	if target.Role == domain.RoleOwner {
		return domain.Forbidden(domain.CodeCannotDeleteOwner, "the company owner cannot be deleted")
	}
	switch requester.Role {
	case domain.RoleOwner:
		// owners may delete managers and members
	case domain.RoleManager:
		if target.Role != domain.RoleMember {
			return domain.Forbidden(domain.CodeInsufficientRole, "managers can only delete members")
		}
	default:
		return domain.Forbidden(domain.CodeInsufficientRole, "members cannot delete users")
	}

	companyID := *target.CompanyID
	return s.withCompanyLock(ctx, companyID, func(ctx context.Context) error {
		var steps []sagaStep

		if target.Role == domain.RoleManager {
			company, err := s.companies.FindByID(ctx, companyID)
			if err != nil {
				return err
			}
			if company.ManagerID != nil && *company.ManagerID == target.ID {
				steps = append(steps, sagaStep{
					name: "clear_company_manager",
					run: func(ctx context.Context) error {
						return s.companies.SetManager(ctx, company.ID, nil, company.UpdatedAt)
					},
					undo: func(ctx context.Context) error {
						return s.companies.SetManager(ctx, company.ID, &target.ID, "")
					},
				})
			}
		}

		steps = append(steps, sagaStep{
			name: "delete_user_row",
			run: func(ctx context.Context) error {
				return s.users.Delete(ctx, target.ID)
			},
		})

		detail := map[string]string{"user_id": target.ID, "company_id": companyID, "role": target.Role}
		return runSaga(ctx, s.log, s.journal, "delete_user", detail, steps)
	})
}

// UpdateRole toggles a user between member and manager without touching
// company-level pointers. Promotion to manager-of-record goes through
// AssignManager instead.
func (s *MembershipService) UpdateRole(ctx context.Context, principal domain.Principal, in ports.UpdateRoleInput) error {
	const operation = "update_role"
	err := s.updateRoleOnce(ctx, principal, in)
	s.observe(operation, err)
	return err
}

func (s *MembershipService) updateRoleOnce(ctx context.Context, principal domain.Principal, in ports.UpdateRoleInput) error {
	requester, err := s.users.FindByAuthID(ctx, principal.ID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.Forbidden(domain.CodeNotOwner, "only the company owner can change roles")
		}
		return err
	}
	if requester.Role != domain.RoleOwner {
		return domain.Forbidden(domain.CodeNotOwner, "only the company owner can change roles")
	}

	target, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if requester.CompanyID == nil || !target.BelongsTo(*requester.CompanyID) {
		return domain.Forbidden(domain.CodeCrossCompany, "user belongs to a different company")
	}
	if target.Role == domain.RoleOwner {
		return domain.Forbidden(domain.CodeCannotDemoteOwner, "the owner's role cannot be changed")
	}
	if target.ID == requester.ID {
		return domain.Forbidden(domain.CodeCannotChangeOwnRole, "you cannot change your own role")
	}
	if !domain.AssignableRole(in.NewRole) {
		return domain.BadRequest(domain.CodeInvalidRole, "role must be member or manager")
	}

	return s.users.UpdateRole(ctx, target.ID, in.NewRole)
}

// withCompanyLock runs fn while holding the company mutation lock. Without a
// configured locker fn runs unguarded; the conditional company writes still
// detect races.
func (s *MembershipService) withCompanyLock(ctx context.Context, companyID string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	key := companyLockPrefix + companyID
	token, ok, err := s.locker.TryLock(ctx, key, companyLockTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("company_id", companyID).Msg("company lock unavailable, proceeding unguarded")
		return fn(ctx)
	}
	if !ok {
		return domain.Conflict(domain.CodeConcurrentUpdate, "another change to this company is in progress")
	}
	defer func() {
		if rerr := s.locker.Release(ctx, key, token); rerr != nil {
			s.log.Warn().Err(rerr).Str("company_id", companyID).Msg("company lock release failed")
		}
	}()

	return fn(ctx)
}

// retryOnConflict re-runs fn when it reports a concurrency conflict, bounded
// by maxConflictAttempts. fn re-reads all preconditions on every attempt.
func (s *MembershipService) retryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || domain.CodeOf(err) != domain.CodeConcurrentUpdate {
			return err
		}
		s.log.Debug().Int("attempt", attempt).Msg("concurrent modification detected, retrying")
	}
	return err
}

func (s *MembershipService) observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindConflict:
			outcome = "conflict"
		case domain.KindInternal:
			outcome = "error"
			switch domain.CodeOf(err) {
			case domain.CodeRolledBack:
				outcome = "rolled_back"
			case domain.CodeReconcileRequired:
				outcome = "reconcile_required"
			}
		default:
			outcome = "rejected"
		}
	}
	metrics.MutationsTotal.WithLabelValues(operation, outcome).Inc()
}
