package ports

import (
	"context"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// CompanyRepository defines the persistence operations for company rows.
//
// SetOwner and SetManager accept the updated_at value read during the
// precondition check. When non-empty it is applied as an equality filter so
// a concurrent modification turns the write into a zero-row match, reported
// as a conflict error. An empty expectedUpdatedAt makes the write
// unconditional; compensation paths use that form to restore known-good
// state.
type CompanyRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Company, error)
	FindByDomain(ctx context.Context, companyDomain string) (*domain.Company, error)
	Create(ctx context.Context, company *domain.Company) (*domain.Company, error)
	Delete(ctx context.Context, id string) error
	SetOwner(ctx context.Context, id, ownerID, expectedUpdatedAt string) error
	SetManager(ctx context.Context, id string, managerID *string, expectedUpdatedAt string) error
}
