package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// SigninHandler bootstraps a user row for a freshly verified principal.
type SigninHandler struct {
	service ports.SignupService
}

func NewSigninHandler(service ports.SignupService) *SigninHandler {
	return &SigninHandler{service: service}
}

type signinResponse struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}

// SignIn handles POST /v1/signin. The body is empty; everything needed comes
// from the verified bearer token.
//
// @Summary      Resolve or bootstrap the signed-in user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  signinResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /v1/signin [post]
func (h *SigninHandler) SignIn(c echo.Context) error {
	principal, err := Principal(c)
	if err != nil {
		return err
	}

	user, err := h.service.SignIn(c.Request().Context(), principal)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, signinResponse{Success: true, User: user})
}
