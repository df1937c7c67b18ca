package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// errorResponse is the canonical failure envelope for all API errors. Code
// is the stable discriminant clients switch on; Error is for display only.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps tagged domain errors to their HTTP status by kind.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the uniform envelope {"success":false,"error":...,"code":...}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var de *domain.Error
	if errors.As(err, &de) {
		status := statusForKind(de.Kind)
		if status == http.StatusInternalServerError {
			// Saga outcomes (rolled_back / reconcile_required) are expected
			// internal states; everything else is logged as unexpected below.
			log.Error().
				Str("code", de.Code).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg(de.Message)
			if de.Code == domain.CodeInternal {
				return status, errorResponse{Error: "internal server error", Code: domain.CodeInternal}
			}
		}
		return status, errorResponse{Error: de.Message, Code: de.Code}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: domain.CodeInternal}
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
