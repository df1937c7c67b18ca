package ports

import (
	"context"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// UserRepository defines the persistence operations for user rows. Every
// write is a single independently committed statement; callers needing
// multi-row atomicity must sequence and compensate themselves.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByAuthID(ctx context.Context, authID string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error
}
