package ports

import (
	"context"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// SignupService bootstraps a user row on first sign-in: it resolves the
// principal to an existing user by auth_id, or creates a company (keyed by
// the email domain) and a member user attached to it.
type SignupService interface {
	SignIn(ctx context.Context, principal domain.Principal) (*domain.User, error)
}
