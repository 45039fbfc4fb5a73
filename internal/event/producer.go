package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/ForumGo/internal/domain"
	pkgkafka "github.com/utafrali/ForumGo/pkg/kafka"
	"github.com/utafrali/ForumGo/pkg/logger"
)

// Kafka topics for user and session events.
var (
	TopicUserRegistered     = pkgkafka.Topic("user", "registered")
	TopicSessionRevoked     = pkgkafka.Topic("session", "revoked")
	TopicSessionsRevokedAll = pkgkafka.Topic("session", "revoked_all")
)

// Aggregate types.
const (
	AggregateTypeUser    = "user"
	AggregateTypeSession = "session"
)

// SourceForum identifies events originating from this service.
const SourceForum = "forum-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// SessionRevokedData is the payload for a session.revoked event. The
// credential itself is never published.
type SessionRevokedData struct {
	UserID    string    `json:"user_id"`
	TokenID   string    `json:"token_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionsRevokedAllData is the payload for a session.revoked_all event.
type SessionsRevokedAllData struct {
	UserID     string    `json:"user_id"`
	ValidAfter time.Time `json:"valid_after"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes forum domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, user.CreatedAt, data)
}

// PublishSessionRevoked publishes a session.revoked event.
func (p *Producer) PublishSessionRevoked(ctx context.Context, claims domain.Claims, at time.Time) error {
	data := SessionRevokedData{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}
	return p.publish(ctx, TopicSessionRevoked, claims.Subject, AggregateTypeSession, at, data)
}

// PublishSessionsRevokedAll publishes a session.revoked_all event.
func (p *Producer) PublishSessionsRevokedAll(ctx context.Context, userID string, validAfter time.Time) error {
	data := SessionsRevokedAllData{
		UserID:     userID,
		ValidAfter: validAfter,
	}
	return p.publish(ctx, TopicSessionsRevokedAll, userID, AggregateTypeSession, validAfter, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, at time.Time, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceForum, at, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
