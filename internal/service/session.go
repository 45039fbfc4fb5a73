package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/internal/repository"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
)

// DefaultBcryptCost is the cost factor for bcrypt password hashing.
const DefaultBcryptCost = 12

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// Events publishes session lifecycle events. *event.Producer satisfies it.
type Events interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishSessionRevoked(ctx context.Context, claims domain.Claims, at time.Time) error
	PublishSessionsRevokedAll(ctx context.Context, userID string, validAfter time.Time) error
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// SessionService implements registration, login and the session lifecycle.
type SessionService struct {
	codec      CredentialCodec
	store      repository.RevocationStore
	users      repository.UserRepository
	events     Events
	clock      clockwork.Clock
	bcryptCost int
	logger     *slog.Logger

	// dummyHash is compared against on unknown emails so both login
	// failures cost one bcrypt comparison.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

// NewSessionService creates a new session service. A zero bcryptCost falls
// back to DefaultBcryptCost.
func NewSessionService(
	codec CredentialCodec,
	store repository.RevocationStore,
	users repository.UserRepository,
	events Events,
	clock clockwork.Clock,
	bcryptCost int,
	logger *slog.Logger,
) *SessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
	}
	return &SessionService{
		codec:      codec,
		store:      store,
		users:      users,
		events:     events,
		clock:      clock,
		bcryptCost: bcryptCost,
		logger:     logger,
		dummyHash:  dummyHash,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

// Register creates a user account and signs a first credential for it.
func (s *SessionService) Register(ctx context.Context, input RegisterInput) (*domain.Session, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if len(input.Username) < minUsernameLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("username must be at least %d characters long", minUsernameLength))
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	emailTaken, usernameTaken, err := s.users.ExistsByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if emailTaken {
		return nil, apperrors.AlreadyExists("user", "email", input.Email)
	}
	if usernameTaken {
		return nil, apperrors.AlreadyExists("user", "username", input.Username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.issue(user.Identity())
	if err != nil {
		return nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))

	return session, nil
}

// Login checks the password and signs a new credential. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = s.compare(s.dummyHash, []byte(input.Password))
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	session, err := s.issue(user.Identity())
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return session, nil
}

// GetUser returns the public identity of any user.
func (s *SessionService) GetUser(ctx context.Context, userID string) (*domain.Identity, error) {
	identity, err := s.users.FindIdentityByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return identity, nil
}

// DeleteUser removes a user account.
func (s *SessionService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", userID))
	return nil
}

// Refresh signs a fresh credential for an authenticated identity. The
// presented credential stays valid until it expires or is revoked.
func (s *SessionService) Refresh(_ context.Context, identity *domain.Identity) (*domain.Session, error) {
	return s.issue(identity)
}

// Logout revokes exactly the presented credential until its own expiry.
// Other credentials of the same user are untouched.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.codec.DecodeUnsafe(token)
	if err != nil {
		return domain.NewAuthError(domain.InvalidCredential, err)
	}

	if err := s.store.Revoke(ctx, token, claims.ExpiresAt); err != nil {
		return domain.NewAuthError(domain.StoreUnavailable, fmt.Errorf("revoke credential: %w", err))
	}

	// Publish revocation event (non-blocking on failure).
	if err := s.events.PublishSessionRevoked(ctx, claims, s.clock.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.revoked event",
			slog.String("user_id", claims.Subject),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "session revoked", slog.String("user_id", claims.Subject))

	return nil
}

// LogoutAll invalidates every credential of the user issued up to now,
// including the presented one.
func (s *SessionService) LogoutAll(ctx context.Context, current *Authenticated) error {
	userID := current.Identity.ID
	validAfter := s.clock.Now().UTC().Truncate(time.Microsecond)

	if err := s.users.UpdateSessionsValidAfter(ctx, userID, validAfter); err != nil {
		return domain.NewAuthError(domain.StoreUnavailable, fmt.Errorf("move session watermark: %w", err))
	}

	if err := s.store.Revoke(ctx, current.Token, current.Claims.ExpiresAt); err != nil {
		return domain.NewAuthError(domain.StoreUnavailable, fmt.Errorf("revoke credential: %w", err))
	}

	// Publish revocation event (non-blocking on failure).
	if err := s.events.PublishSessionsRevokedAll(ctx, userID, validAfter); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.revoked_all event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "all sessions revoked", slog.String("user_id", userID))

	return nil
}

func (s *SessionService) issue(identity *domain.Identity) (*domain.Session, error) {
	token, claims, err := s.codec.Issue(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}
	return &domain.Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		User:      identity,
	}, nil
}
