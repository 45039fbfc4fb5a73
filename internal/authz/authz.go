// Package authz holds the stateless authorization rules: role membership,
// email verification and content ownership.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/internal/repository"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
)

// HasRole reports whether identity holds one of the allowed roles.
func HasRole(identity *domain.Identity, allowed ...string) bool {
	if identity == nil {
		return false
	}
	for _, role := range allowed {
		if identity.Role == role {
			return true
		}
	}
	return false
}

// RequireVerifiedEmail rejects identities whose email is not verified.
func RequireVerifiedEmail(identity *domain.Identity) error {
	if identity == nil {
		return domain.NewAuthError(domain.NoCredential, nil)
	}
	if !identity.EmailVerified {
		return domain.NewAuthError(domain.EmailNotVerified, nil)
	}
	return nil
}

// IsOwnerOrElevated reports whether identity owns the resource or holds a
// moderator or admin role. The rule is the same for every resource kind.
func IsOwnerOrElevated(identity *domain.Identity, ownerID string) bool {
	if identity == nil {
		return false
	}
	return identity.ID == ownerID || domain.IsElevated(identity.Role)
}

// Authorizer resolves resources before applying ownership rules.
type Authorizer struct {
	resources repository.ResourceLookup
}

// NewAuthorizer creates an Authorizer backed by the given lookup.
func NewAuthorizer(resources repository.ResourceLookup) *Authorizer {
	return &Authorizer{resources: resources}
}

// AuthorizeOwnership fetches the resource and checks that identity may
// modify it. A missing resource is reported before any ownership decision.
func (a *Authorizer) AuthorizeOwnership(ctx context.Context, identity *domain.Identity, kind, publicID string) (*domain.Resource, error) {
	if identity == nil {
		return nil, domain.NewAuthError(domain.NoCredential, nil)
	}

	res, err := a.resources.FindResource(ctx, kind, publicID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.NewAuthError(domain.ResourceNotFound, err)
		}
		return nil, domain.NewAuthError(domain.StoreUnavailable, fmt.Errorf("find %s: %w", kind, err))
	}

	if !IsOwnerOrElevated(identity, res.OwnerID) {
		return nil, domain.NewAuthError(domain.PermissionDenied, nil)
	}

	return res, nil
}
