package repository

import (
	"context"
	"time"

	"github.com/utafrali/ForumGo/internal/domain"
)

// RevocationStore is the durable map from revoked credential to its expiry.
type RevocationStore interface {
	// Revoke records token as revoked until expiresAt, overwriting any
	// previous expiry for the same token.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked reports whether token has an unexpired entry. An entry whose
	// expiry has passed is deleted and reported as not revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// PurgeExpired deletes every entry with expiry at or before now and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserRepository defines the user registry operations the session core needs.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *domain.User) error

	// FindIdentityByID returns the public identity of a user. It returns
	// apperrors.ErrNotFound when no such user exists.
	FindIdentityByID(ctx context.Context, id string) (*domain.Identity, error)

	// FindByEmail returns the full user record, password hash included.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmailOrUsername reports which of the two values are already taken.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)

	// UpdateSessionsValidAfter moves the logout-all watermark of a user.
	UpdateSessionsValidAfter(ctx context.Context, id string, at time.Time) error

	// Delete removes a user.
	Delete(ctx context.Context, id string) error
}

// ResourceLookup resolves the owner of a piece of content.
type ResourceLookup interface {
	// FindResource returns the resource of the given kind identified by its
	// public id (a post slug or id, a comment id). It returns
	// apperrors.ErrNotFound when nothing matches.
	FindResource(ctx context.Context, kind, publicID string) (*domain.Resource, error)
}
