package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/ForumGo/internal/domain"
	pkgkafka "github.com/utafrali/ForumGo/pkg/kafka"
	"github.com/utafrali/ForumGo/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: e})
	return nil
}

var at = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProducer() (*Producer, *fakePublisher) {
	pub := &fakePublisher{}
	return NewProducer(pub, slog.New(slog.DiscardHandler)), pub
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "forum.user.registered", TopicUserRegistered)
	assert.Equal(t, "forum.session.revoked", TopicSessionRevoked)
	assert.Equal(t, "forum.session.revoked_all", TopicSessionsRevokedAll)
}

func TestPublishUserRegistered(t *testing.T) {
	p, pub := newTestProducer()
	user := &domain.User{ID: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "secret-hash", Role: domain.RoleUser, CreatedAt: at}

	require.NoError(t, p.PublishUserRegistered(context.Background(), user))
	require.Len(t, pub.sent, 1)

	sent := pub.sent[0]
	assert.Equal(t, TopicUserRegistered, sent.topic)
	assert.Equal(t, "u-1", sent.event.AggregateID)
	assert.Equal(t, AggregateTypeUser, sent.event.AggregateType)
	assert.NotContains(t, string(sent.event.Data), "secret-hash")

	var data UserRegisteredData
	require.NoError(t, json.Unmarshal(sent.event.Data, &data))
	assert.Equal(t, "alice", data.Username)
}

func TestPublishSessionRevoked_CarriesCorrelationID(t *testing.T) {
	p, pub := newTestProducer()
	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	claims := domain.Claims{Subject: "u-1", ID: "jti-1", ExpiresAt: at.Add(time.Hour)}

	require.NoError(t, p.PublishSessionRevoked(ctx, claims, at))
	require.Len(t, pub.sent, 1)

	sent := pub.sent[0]
	assert.Equal(t, TopicSessionRevoked, sent.topic)
	assert.Equal(t, "corr-9", sent.event.CorrelationID)
	assert.Equal(t, at, sent.event.Timestamp)

	var data SessionRevokedData
	require.NoError(t, json.Unmarshal(sent.event.Data, &data))
	assert.Equal(t, "jti-1", data.TokenID)
	assert.True(t, at.Add(time.Hour).Equal(data.ExpiresAt))
}

func TestPublishSessionsRevokedAll(t *testing.T) {
	p, pub := newTestProducer()

	require.NoError(t, p.PublishSessionsRevokedAll(context.Background(), "u-1", at))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, TopicSessionsRevokedAll, pub.sent[0].topic)
	assert.Empty(t, pub.sent[0].event.CorrelationID)
}

func TestPublish_Error(t *testing.T) {
	p, pub := newTestProducer()
	pub.err = errors.New("broker down")

	err := p.PublishSessionsRevokedAll(context.Background(), "u-1", at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicSessionsRevokedAll)
}
