package shared

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure for callers and the transport layer.
type Kind string

const (
	// KindValidation marks malformed or missing input; caller-fixable.
	KindValidation Kind = "validation"
	// KindAuthentication marks requests whose caller context could not be resolved.
	KindAuthentication Kind = "authentication"
	// KindAuthorization marks a resolved caller lacking permission.
	KindAuthorization Kind = "authorization"
	// KindNotFound marks an absent target role or user.
	KindNotFound Kind = "not_found"
	// KindConflict marks a role deletion blocked by existing children.
	KindConflict Kind = "conflict"
	// KindProtected marks mutations of the root role or the root admin's role set.
	KindProtected Kind = "protected_entity"
	// KindStorage marks a backing-store failure. It always aborts the
	// operation; a partial traversal must never feed an authorization decision.
	KindStorage Kind = "storage"
	// KindIdentityDegraded marks a failed best-effort identity-store cleanup
	// after the authoritative directory write already committed.
	KindIdentityDegraded Kind = "identity_store_degraded"
)

// Error carries a failure kind alongside a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// ChildRoleIDs lists the blocking children on KindConflict.
	ChildRoleIDs []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef builds a classified error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors report
// KindStorage so they can never be mistaken for an empty result.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
