package ports

import (
	"context"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// ClaimOwnershipInput identifies the member claiming ownership and the
// company being claimed.
type ClaimOwnershipInput struct {
	UserID    string
	CompanyID string
}

// AssignManagerInput identifies the user being promoted to manager-of-record.
type AssignManagerInput struct {
	UserID    string
	CompanyID string
}

// DeleteUserInput identifies the user being removed.
type DeleteUserInput struct {
	UserID string
}

// UpdateRoleInput identifies the user whose role is toggled and the new role.
type UpdateRoleInput struct {
	UserID  string
	NewRole string
}

// MembershipService implements the four company-membership state
// transitions. Each call validates the principal's authorisation, checks
// preconditions against current store state, and performs the ordered writes
// with compensation on partial failure.
type MembershipService interface {
	ClaimOwnership(ctx context.Context, principal domain.Principal, in ClaimOwnershipInput) error
	AssignManager(ctx context.Context, principal domain.Principal, in AssignManagerInput) error
	DeleteUser(ctx context.Context, principal domain.Principal, in DeleteUserInput) error
	UpdateRole(ctx context.Context, principal domain.Principal, in UpdateRoleInput) error
}
