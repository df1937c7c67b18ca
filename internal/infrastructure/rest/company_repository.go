package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

const companiesTable = "companies"

// CompanyRepository implements ports.CompanyRepository over the REST client.
type CompanyRepository struct {
	client *Client
}

func NewCompanyRepository(client *Client) *CompanyRepository {
	return &CompanyRepository{client: client}
}

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*domain.Company, error) {
	return r.findOne(ctx, "id", id)
}

func (r *CompanyRepository) FindByDomain(ctx context.Context, companyDomain string) (*domain.Company, error) {
	return r.findOne(ctx, "domain", companyDomain)
}

func (r *CompanyRepository) findOne(ctx context.Context, column, value string) (*domain.Company, error) {
	q := url.Values{}
	q.Set(column, "eq."+value)
	q.Set("limit", "1")

	data, err := r.client.Select(ctx, companiesTable, q)
	if err != nil {
		return nil, wrapDataError("find company", err)
	}

	var rows []domain.Company
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("find company: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.NotFound(domain.CodeCompanyNotFound, "company not found")
	}
	return &rows[0], nil
}

func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	payload := map[string]any{
		"id":     company.ID,
		"name":   company.Name,
		"domain": company.Domain,
	}
	data, err := r.client.Insert(ctx, companiesTable, payload)
	if err != nil {
		return nil, wrapDataError("create company", err)
	}

	var rows []domain.Company
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("create company: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.Internal(domain.CodeInternal, "create company: store returned no row")
	}
	return &rows[0], nil
}

func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, companiesTable, map[string]string{"id": id}); err != nil {
		return wrapDataError("delete company", err)
	}
	return nil
}

func (r *CompanyRepository) SetOwner(ctx context.Context, id, ownerID, expectedUpdatedAt string) error {
	return r.setPointer(ctx, "set company owner", id, map[string]any{
		"owner_id":   ownerID,
		"updated_at": nowTimestamp(),
	}, expectedUpdatedAt)
}

func (r *CompanyRepository) SetManager(ctx context.Context, id string, managerID *string, expectedUpdatedAt string) error {
	return r.setPointer(ctx, "set company manager", id, map[string]any{
		"manager_id": managerID,
		"updated_at": nowTimestamp(),
	}, expectedUpdatedAt)
}

// setPointer patches a company row. With a non-empty expectedUpdatedAt the
// write carries an updated_at equality filter; a zero-row result then means
// the row changed since it was read.
func (r *CompanyRepository) setPointer(ctx context.Context, op, id string, payload map[string]any, expectedUpdatedAt string) error {
	filters := map[string]string{"id": id}
	if expectedUpdatedAt != "" {
		filters["updated_at"] = expectedUpdatedAt
	}

	data, err := r.client.Update(ctx, companiesTable, filters, payload)
	if err != nil {
		return wrapDataError(op, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	if len(rows) == 0 {
		if expectedUpdatedAt != "" {
			return domain.Conflict(domain.CodeConcurrentUpdate, "company was modified concurrently")
		}
		return domain.NotFound(domain.CodeCompanyNotFound, "company not found")
	}
	return nil
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
