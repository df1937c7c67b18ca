package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
	"github.com/dnstld/desk-buddy-sub000/internal/core/ports"
)

// principalKey is the Echo context key the verified principal is stored
// under. Handlers read it back through handler.Principal.
const principalKey = "principal"

// Auth extracts the bearer token, verifies it against the identity provider
// exactly once, and injects the resulting principal into the request
// context. Verification failures surface as tagged domain errors rendered by
// the central error handler.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return domain.Unauthorized(domain.CodeMissingToken, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return domain.Unauthorized(domain.CodeInvalidToken, "invalid authorization header")
			}

			principal, err := verifier.Verify(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			c.Set(principalKey, *principal)
			return next(c)
		}
	}
}
