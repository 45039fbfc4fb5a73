package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/ForumGo/internal/auth"
	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/internal/repository"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
	"github.com/utafrali/ForumGo/pkg/middleware"
)

// CredentialCodec issues and reads bearer credentials. *auth.Codec satisfies it.
type CredentialCodec interface {
	Issue(subjectID string) (string, domain.Claims, error)
	Parse(token string) (domain.Claims, error)
	DecodeUnsafe(token string) (domain.Claims, error)
}

// Authenticated is the outcome of a successful authentication.
type Authenticated struct {
	Identity *domain.Identity
	Token    string
	Claims   domain.Claims
}

// Authenticator turns an Authorization header into an identity.
type Authenticator struct {
	codec    CredentialCodec
	store    repository.RevocationStore
	users    repository.UserRepository
	logger   *slog.Logger
	failures *prometheus.CounterVec
}

// NewAuthenticator creates an Authenticator and registers its metrics with reg.
func NewAuthenticator(
	codec CredentialCodec,
	store repository.RevocationStore,
	users repository.UserRepository,
	reg prometheus.Registerer,
	logger *slog.Logger,
) *Authenticator {
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Total number of rejected authentication attempts by failure kind",
	}, []string{"kind"})
	reg.MustRegister(failures)

	return &Authenticator{
		codec:    codec,
		store:    store,
		users:    users,
		logger:   logger,
		failures: failures,
	}
}

// Authenticate runs the required-mode checks in order: header, signature and
// expiry, revocation, then the user registry. The first rejection wins.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Authenticated, error) {
	result, err := a.authenticate(ctx, header)
	if err != nil {
		kind, _ := domain.KindOf(err)
		a.failures.WithLabelValues(kind.String()).Inc()
		a.logger.WarnContext(ctx, "authentication rejected",
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return result, nil
}

// AuthenticateOptional never rejects. Any failure, store outages included,
// yields a nil result.
func (a *Authenticator) AuthenticateOptional(ctx context.Context, header string) *Authenticated {
	if header == "" {
		return nil
	}
	result, err := a.authenticate(ctx, header)
	if err != nil {
		kind, _ := domain.KindOf(err)
		a.logger.DebugContext(ctx, "optional authentication ignored",
			slog.String("kind", kind.String()),
		)
		return nil
	}
	return result
}

func (a *Authenticator) authenticate(ctx context.Context, header string) (*Authenticated, error) {
	token, ok := middleware.BearerToken(header)
	if !ok {
		return nil, domain.NewAuthError(domain.NoCredential, nil)
	}

	claims, err := a.codec.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpired) {
			return nil, domain.NewAuthError(domain.CredentialExpired, err)
		}
		return nil, domain.NewAuthError(domain.InvalidCredential, err)
	}

	revoked, err := a.store.IsRevoked(ctx, token)
	if err != nil {
		return nil, domain.NewAuthError(domain.StoreUnavailable, fmt.Errorf("check revocation: %w", err))
	}
	if revoked {
		return nil, domain.NewAuthError(domain.CredentialExpired, errors.New("credential revoked"))
	}

	identity, err := a.users.FindIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.NewAuthError(domain.InvalidCredential, errors.New("subject no longer exists"))
		}
		return nil, domain.NewAuthError(domain.StoreUnavailable, fmt.Errorf("find identity: %w", err))
	}
	if !identity.SessionStillValid(claims.IssuedAt) {
		return nil, domain.NewAuthError(domain.CredentialExpired, errors.New("credential predates logout-all"))
	}

	return &Authenticated{Identity: identity, Token: token, Claims: claims}, nil
}
