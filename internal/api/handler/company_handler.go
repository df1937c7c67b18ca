package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// CompanyHandler handles the mutations that touch company-level pointers:
// claiming ownership and assigning the manager-of-record.
type CompanyHandler struct {
	service ports.MembershipService
}

func NewCompanyHandler(service ports.MembershipService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

type claimOwnershipRequest struct {
	UserID    string `json:"userId" validate:"required"`
	CompanyID string `json:"companyId" validate:"required"`
}

type setManagerRequest struct {
	UserID    string `json:"userId" validate:"required"`
	CompanyID string `json:"companyId" validate:"required"`
}

// successResponse is the uniform envelope returned by every mutation.
type successResponse struct {
	Success bool `json:"success"`
}

// ClaimOwnership handles POST /v1/claim-company-ownership.
//
// @Summary      Claim ownership of an unowned company
// @Tags         companies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      claimOwnershipRequest  true  "User and company ids"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/claim-company-ownership [post]
func (h *CompanyHandler) ClaimOwnership(c echo.Context) error {
	principal, err := Principal(c)
	if err != nil {
		return err
	}

	var req claimOwnershipRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest(domain.CodeInvalidBody, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.ClaimOwnership(c.Request().Context(), principal, ports.ClaimOwnershipInput{
		UserID:    req.UserID,
		CompanyID: req.CompanyID,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// SetManager handles POST /v1/set-company-manager.
//
// @Summary      Assign the company's manager-of-record
// @Tags         companies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      setManagerRequest  true  "User and company ids"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/set-company-manager [post]
func (h *CompanyHandler) SetManager(c echo.Context) error {
	principal, err := Principal(c)
	if err != nil {
		return err
	}

	var req setManagerRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest(domain.CodeInvalidBody, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.AssignManager(c.Request().Context(), principal, ports.AssignManagerInput{
		UserID:    req.UserID,
		CompanyID: req.CompanyID,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}
