package domain

import "errors"

// Kind classifies an error into the closed set of outcomes the API exposes.
// The HTTP layer maps each kind to exactly one status code.
type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Stable machine-readable error codes. Clients switch on these, never on
// message text.
const (
	CodeInvalidBody         = "invalid_body"
	CodeMissingToken        = "missing_token"
	CodeInvalidToken        = "invalid_token"
	CodeAuthProvider        = "auth_provider"
	CodeUserNotFound        = "user_not_found"
	CodeCompanyNotFound     = "company_not_found"
	CodeMismatch            = "mismatch"
	CodeWrongCompany        = "wrong_company"
	CodeAlreadyOwned        = "already_owned"
	CodeNotOwner            = "not_owner"
	CodeCannotDemoteOwner   = "cannot_demote_owner"
	CodeCrossCompany        = "cross_company"
	CodeCannotDeleteSelf    = "cannot_delete_self"
	CodeCannotDeleteOwner   = "cannot_delete_owner"
	CodeInsufficientRole    = "insufficient_role"
	CodeCannotChangeOwnRole = "cannot_change_own_role"
	CodeInvalidRole         = "invalid_role"
	CodeInvalidEmail        = "invalid_email"
	CodeConcurrentUpdate    = "concurrent_update"
	CodeRolledBack          = "rolled_back"
	CodeReconcileRequired   = "reconcile_required"
	CodeInternal            = "internal"
)

// Error is a tagged-variant domain error: a kind for status mapping, a
// stable code for clients, and a human-readable message for display.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func BadRequest(code, message string) *Error   { return newError(KindBadRequest, code, message) }
func Unauthorized(code, message string) *Error { return newError(KindUnauthorized, code, message) }
func Forbidden(code, message string) *Error    { return newError(KindForbidden, code, message) }
func NotFound(code, message string) *Error     { return newError(KindNotFound, code, message) }
func Conflict(code, message string) *Error     { return newError(KindConflict, code, message) }
func Internal(code, message string) *Error     { return newError(KindInternal, code, message) }

// KindOf returns the kind carried by err, or KindInternal for errors that
// did not originate in this package.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
