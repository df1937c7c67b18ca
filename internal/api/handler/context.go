package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// Principal extracts the identity injected by the Auth middleware. Its
// presence proves the middleware ran; a handler reached without it is a
// routing mistake, reported as 401 rather than panicking.
func Principal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get("principal").(domain.Principal)
	if !ok || p.ID == "" {
		return domain.Principal{}, domain.Unauthorized(domain.CodeMissingToken, "missing authentication")
	}
	return p, nil
}
