package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// UserHandler handles user-scoped mutations: deletion and the guarded
// member/manager role toggle.
type UserHandler struct {
	service ports.MembershipService
}

func NewUserHandler(service ports.MembershipService) *UserHandler {
	return &UserHandler{service: service}
}

type deleteUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type updateRoleRequest struct {
	UserID string `json:"userId" validate:"required"`
	// Role validity beyond presence is checked in the service so the
	// precondition ordering (authorisation before role validation) holds.
	NewRole string `json:"newRole" validate:"required"`
}

// Delete handles POST /v1/delete-user.
//
// @Summary      Delete a user from the requester's company
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deleteUserRequest  true  "Target user id"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/delete-user [post]
func (h *UserHandler) Delete(c echo.Context) error {
	principal, err := Principal(c)
	if err != nil {
		return err
	}

	var req deleteUserRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest(domain.CodeInvalidBody, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.DeleteUser(c.Request().Context(), principal, ports.DeleteUserInput{
		UserID: req.UserID,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// UpdateRole handles POST /v1/update-user-role.
//
// @Summary      Toggle a user between member and manager
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateRoleRequest  true  "Target user id and new role"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/update-user-role [post]
func (h *UserHandler) UpdateRole(c echo.Context) error {
	principal, err := Principal(c)
	if err != nil {
		return err
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest(domain.CodeInvalidBody, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.UpdateRole(c.Request().Context(), principal, ports.UpdateRoleInput{
		UserID:  req.UserID,
		NewRole: req.NewRole,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}
