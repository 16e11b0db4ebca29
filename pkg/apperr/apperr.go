// Package apperr defines the error taxonomy shared by the store, the tree
// engines, and the session coordinator. Kinds split into caller errors
// (bad references, policy violations), transient errors, and internal
// errors that indicate a broken invariant and must abort the operation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	// Caller errors.
	KindNotFound      Kind = "NOT_FOUND"
	KindUnknownParent Kind = "UNKNOWN_PARENT"
	KindUnknownBranch Kind = "UNKNOWN_BRANCH"
	KindDepthLimit    Kind = "DEPTH_LIMIT_EXCEEDED"
	KindValidation    Kind = "VALIDATION"

	// Transient.
	KindSessionBusy Kind = "SESSION_BUSY"

	// Internal — broken invariant, never downgraded or swallowed.
	KindDuplicateID         Kind = "DUPLICATE_ID"
	KindBranchNameCollision Kind = "BRANCH_NAME_COLLISION"
	KindCycleDetected       Kind = "CYCLE_DETECTED"
	KindInternal            Kind = "INTERNAL"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause attaches an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// HTTPStatus maps the kind to an HTTP status code for the API surface.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnknownParent, KindUnknownBranch, KindValidation:
		return http.StatusBadRequest
	case KindDepthLimit:
		return http.StatusUnprocessableEntity
	case KindSessionBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Internal reports whether the error indicates a broken invariant rather
// than a bad request.
func (e *Error) Internal() bool {
	switch e.Kind {
	case KindDuplicateID, KindBranchNameCollision, KindCycleDetected, KindInternal:
		return true
	}
	return false
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing node, branch, or session.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// UnknownParent reports a parent key that does not resolve to a node.
func UnknownParent(format string, args ...any) *Error {
	return newf(KindUnknownParent, format, args...)
}

// UnknownBranch reports a branch name that does not exist.
func UnknownBranch(format string, args ...any) *Error {
	return newf(KindUnknownBranch, format, args...)
}

// DepthLimit reports a generation attempt past the configured maximum depth.
func DepthLimit(format string, args ...any) *Error { return newf(KindDepthLimit, format, args...) }

// Validation reports a malformed request payload.
func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

// SessionBusy reports a rejected concurrent mutation; callers may retry.
func SessionBusy(format string, args ...any) *Error { return newf(KindSessionBusy, format, args...) }

// DuplicateID reports a reused node id. This is an id-generation bug.
func DuplicateID(format string, args ...any) *Error { return newf(KindDuplicateID, format, args...) }

// BranchNameCollision reports a fork onto an existing branch name.
func BranchNameCollision(format string, args ...any) *Error {
	return newf(KindBranchNameCollision, format, args...)
}

// CycleDetected reports a revisited node id during an ancestry walk.
func CycleDetected(format string, args ...any) *Error {
	return newf(KindCycleDetected, format, args...)
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// From extracts an *Error from an error chain, or nil.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e := From(err)
	return e != nil && e.Kind == kind
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }
