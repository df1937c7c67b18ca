package rest

import (
	"errors"
	"fmt"

	"github.com/dnstld/desk-buddy-sub000/internal/core/domain"
)

// wrapDataError converts a transport-level failure into a domain error.
// Every store failure is internal from the caller's point of view; the
// status and body stay available in the message for logs.
func wrapDataError(op string, err error) error {
	var de *DataError
	if errors.As(err, &de) {
		return domain.Internal(domain.CodeInternal, fmt.Sprintf("%s: %s", op, de.Error()))
	}
	return domain.Internal(domain.CodeInternal, fmt.Sprintf("%s: %v", op, err))
}
