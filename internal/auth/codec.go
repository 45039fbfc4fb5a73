package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/utafrali/ForumGo/internal/domain"
)

// DefaultLifetime is the validity window of an issued credential.
const DefaultLifetime = 7 * 24 * time.Hour

var (
	// ErrInvalidSignature covers forged, corrupted, malformed and
	// wrong-algorithm credentials, and credentials missing sub or exp.
	ErrInvalidSignature = errors.New("invalid credential signature")

	// ErrExpired is returned for a correctly signed credential whose exp has passed.
	ErrExpired = errors.New("credential expired")

	// ErrUndecodable is returned by DecodeUnsafe when no claims can be read.
	ErrUndecodable = errors.New("credential cannot be decoded")
)

// CodecConfig holds the signing parameters of a Codec.
type CodecConfig struct {
	Secret   string
	Lifetime time.Duration
	Issuer   string
}

// credentialClaims extends the registered claims with the issue time in
// microseconds. The standard iat only has second precision.
type credentialClaims struct {
	jwt.RegisteredClaims
	IssuedAtMicros int64 `json:"iat_us,omitempty"`
}

// Codec issues and verifies HS256 bearer credentials.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	clock    clockwork.Clock
	parser   *jwt.Parser
}

// NewCodec creates a Codec. A zero Lifetime falls back to DefaultLifetime.
func NewCodec(cfg CodecConfig, clock clockwork.Clock) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("codec secret must not be empty")
	}
	if cfg.Lifetime < 0 {
		return nil, fmt.Errorf("codec lifetime must be positive, got %s", cfg.Lifetime)
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clock.Now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Codec{
		secret:   []byte(cfg.Secret),
		lifetime: cfg.Lifetime,
		issuer:   cfg.Issuer,
		clock:    clock,
		parser:   jwt.NewParser(opts...),
	}, nil
}

// Lifetime returns the configured credential lifetime.
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue signs a new credential for subjectID. It does not touch any store.
func (c *Codec) Issue(subjectID string) (string, domain.Claims, error) {
	if subjectID == "" {
		return "", domain.Claims{}, fmt.Errorf("issue credential: empty subject")
	}

	now := c.clock.Now().UTC().Truncate(time.Microsecond)
	claims := domain.Claims{
		Subject:   subjectID,
		ID:        uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(c.lifetime).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, credentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		IssuedAtMicros: claims.IssuedAt.UnixMicro(),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign credential: %w", err)
	}

	return signed, claims, nil
}

// Parse verifies the signature and then the expiry of token.
func (c *Codec) Parse(token string) (domain.Claims, error) {
	var rc credentialClaims
	_, err := c.parser.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return domain.Claims{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if rc.Subject == "" {
		return domain.Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidSignature)
	}

	return toClaims(&rc), nil
}

// DecodeUnsafe reads the claims of token without verifying its signature.
// Callers must not trust anything but the expiry it reports.
func (c *Codec) DecodeUnsafe(token string) (domain.Claims, error) {
	var rc credentialClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if rc.ExpiresAt == nil {
		return domain.Claims{}, fmt.Errorf("%w: missing exp", ErrUndecodable)
	}

	return toClaims(&rc), nil
}

func toClaims(rc *credentialClaims) domain.Claims {
	claims := domain.Claims{
		Subject: rc.Subject,
		ID:      rc.ID,
	}
	switch {
	case rc.IssuedAtMicros > 0:
		claims.IssuedAt = time.UnixMicro(rc.IssuedAtMicros).UTC()
	case rc.IssuedAt != nil:
		claims.IssuedAt = rc.IssuedAt.UTC()
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.UTC()
	}
	return claims
}
