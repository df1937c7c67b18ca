package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

const usersTable = "users"

// UserRepository implements ports.UserRepository over the REST client.
type UserRepository struct {
	client *Client
}

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	return r.findOne(ctx, "auth_id", authID)
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (*domain.User, error) {
	q := url.Values{}
	q.Set(column, "eq."+value)
	q.Set("limit", "1")

	data, err := r.client.Select(ctx, usersTable, q)
	if err != nil {
		return nil, wrapDataError("find user", err)
	}

	var rows []domain.User
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("find user: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.NotFound(domain.CodeUserNotFound, "user not found")
	}
	return &rows[0], nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	data, err := r.client.Insert(ctx, usersTable, user)
	if err != nil {
		return nil, wrapDataError("create user", err)
	}

	var rows []domain.User
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("create user: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.Internal(domain.CodeInternal, "create user: store returned no row")
	}
	return &rows[0], nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	data, err := r.client.Update(ctx, usersTable, map[string]string{"id": id}, map[string]string{"role": role})
	if err != nil {
		return wrapDataError("update user role", err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("update user role: decode: %w", err)
	}
	if len(rows) == 0 {
		return domain.NotFound(domain.CodeUserNotFound, "user not found")
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, usersTable, map[string]string{"id": id}); err != nil {
		return wrapDataError("delete user", err)
	}
	return nil
}
