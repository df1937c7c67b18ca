package ports

import (
	"context"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// TokenVerifier exchanges a bearer token for the calling principal's
// identity. Called exactly once per request, before any data access.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Principal, error)
}
