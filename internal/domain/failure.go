package domain

import (
	"errors"
	"fmt"
)

// FailureKind enumerates every way authentication or authorization can reject
// a request.
type FailureKind int

const (
	NoCredential FailureKind = iota + 1
	InvalidCredential
	CredentialExpired
	EmailNotVerified
	ResourceNotFound
	PermissionDenied
	StoreUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case NoCredential:
		return "no_credential"
	case InvalidCredential:
		return "invalid_credential"
	case CredentialExpired:
		return "credential_expired"
	case EmailNotVerified:
		return "email_not_verified"
	case ResourceNotFound:
		return "resource_not_found"
	case PermissionDenied:
		return "permission_denied"
	case StoreUnavailable:
		return "store_unavailable"
	default:
		return fmt.Sprintf("failure_kind(%d)", int(k))
	}
}

// FailureKinds lists every kind, in declaration order.
func FailureKinds() []FailureKind {
	return []FailureKind{
		NoCredential, InvalidCredential, CredentialExpired, EmailNotVerified,
		ResourceNotFound, PermissionDenied, StoreUnavailable,
	}
}

// AuthError is a rejection carrying its FailureKind. Err holds the internal
// cause and is never shown to clients.
type AuthError struct {
	Kind FailureKind
	Err  error
}

// NewAuthError creates an AuthError of the given kind wrapping cause.
func NewAuthError(kind FailureKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// KindOf extracts the FailureKind from err, if any.
func KindOf(err error) (FailureKind, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	return 0, false
}
