package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/ForumGo/internal/auth"
	"github.com/utafrali/ForumGo/internal/authz"
	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/internal/service"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
	"github.com/utafrali/ForumGo/pkg/health"
	"github.com/utafrali/ForumGo/pkg/httputil"
	"github.com/utafrali/ForumGo/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) FindIdentityByID(ctx context.Context, id string) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *mockUserRepo) UpdateSessionsValidAfter(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockRevocationStore struct {
	mock.Mock
}

func (m *mockRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	args := m.Called(ctx, token, expiresAt)
	return args.Error(0)
}

func (m *mockRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockResourceLookup struct {
	mock.Mock
}

func (m *mockResourceLookup) FindResource(ctx context.Context, kind, publicID string) (*domain.Resource, error) {
	args := m.Called(ctx, kind, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockEvents) PublishSessionRevoked(ctx context.Context, claims domain.Claims, at time.Time) error {
	args := m.Called(ctx, claims, at)
	return args.Error(0)
}

func (m *mockEvents) PublishSessionsRevokedAll(ctx context.Context, userID string, validAfter time.Time) error {
	args := m.Called(ctx, userID, validAfter)
	return args.Error(0)
}

// ============================================================================
// Fixture
// ============================================================================

const (
	aliceID = "11111111-1111-4111-8111-111111111111"
	bobID   = "22222222-2222-4222-8222-222222222222"
	modID   = "33333333-3333-4333-8333-333333333333"
	adminID = "44444444-4444-4444-8444-444444444444"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	codec     *auth.Codec
	users     *mockUserRepo
	store     *mockRevocationStore
	resources *mockResourceLookup
	events    *mockEvents
	router    http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	codec, err := auth.NewCodec(auth.CodecConfig{Secret: "handler-test-secret"}, clock)
	require.NoError(t, err)

	env := &testEnv{
		codec:     codec,
		users:     new(mockUserRepo),
		store:     new(mockRevocationStore),
		resources: new(mockResourceLookup),
		events:    new(mockEvents),
	}

	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()
	authenticator := service.NewAuthenticator(codec, env.store, env.users, reg, logger)
	sessions := service.NewSessionService(codec, env.store, env.users, env.events, clock, bcrypt.MinCost, logger)

	env.router = NewRouter(RouterConfig{
		ServiceName: "forum-test",
		Sessions:    sessions,
		Auth:        NewAuthMiddleware(authenticator, authz.NewAuthorizer(env.resources), logger),
		Health:      health.NewHandler(),
		Metrics:     middleware.NewHTTPMetrics(reg, "forum-test"),
		Gatherer:    reg,
		CORS:        middleware.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Logger:      logger,
	})
	return env
}

// login registers identity as an existing user and returns a bearer header for it.
func (e *testEnv) login(t *testing.T, identity *domain.Identity) string {
	t.Helper()
	token, _, err := e.codec.Issue(identity.ID)
	require.NoError(t, err)
	e.store.On("IsRevoked", mock.Anything, token).Return(false, nil).Maybe()
	e.users.On("FindIdentityByID", mock.Anything, identity.ID).Return(identity, nil).Maybe()
	return "Bearer " + token
}

func (e *testEnv) do(t *testing.T, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func newIdentity(id, username, role string, verified bool) *domain.Identity {
	return &domain.Identity{
		ID:            id,
		Username:      username,
		Email:         username + "@example.com",
		Role:          role,
		EmailVerified: verified,
	}
}

// ============================================================================
// ContentTypeJSON
// ============================================================================

func TestContentTypeJSON_RejectsOtherContentTypes(t *testing.T) {
	called := false
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/test", bytes.NewBufferString("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	assert.False(t, called)
}

func TestContentTypeJSON_AllowsJSONAndMissingContentType(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, ct := range []string{"", "application/json", "application/json; charset=utf-8"} {
		req := httptest.NewRequest(http.MethodPost, "/api/test", bytes.NewBufferString(`{}`))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "content type %q", ct)
	}
}

// ============================================================================
// Auth endpoints
// ============================================================================

func TestRegister_Created(t *testing.T) {
	env := newTestEnv(t)
	env.users.On("ExistsByEmailOrUsername", mock.Anything, "carol@example.com", "carol").Return(false, false, nil)
	env.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.events.On("PublishUserRegistered", mock.Anything, mock.Anything).Return(nil)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "secret1",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var session domain.Session
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &session))
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "carol", session.User.Username)
	assert.Equal(t, domain.RoleUser, session.User.Role)
}

func TestRegister_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Username: "carol",
		Email:    "not-an-email",
		Password: "123",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
	env.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.users.On("ExistsByEmailOrUsername", mock.Anything, "carol@example.com", "carol").Return(true, false, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "secret1",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", errorCode(t, rec))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, apperrors.ErrNotFound)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestMe_NoCredential(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	assert.Equal(t, "NO_CREDENTIAL", errorCode(t, rec))
}

func TestMe_InvalidCredential(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", "Bearer garbage.token.value", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIAL", errorCode(t, rec))
}

func TestMe_ReturnsIdentity(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, true))

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", header, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Identity
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, aliceID, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestMe_RevokedCredential(t *testing.T) {
	env := newTestEnv(t)
	token, _, err := env.codec.Issue(aliceID)
	require.NoError(t, err)
	env.store.On("IsRevoked", mock.Anything, token).Return(true, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", "Bearer "+token, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "CREDENTIAL_EXPIRED", errorCode(t, rec))
}

func TestMe_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	token, _, err := env.codec.Issue(aliceID)
	require.NoError(t, err)
	env.store.On("IsRevoked", mock.Anything, token).Return(false, errors.New("circuit open"))

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", "Bearer "+token, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "circuit open")
}

func TestLogout_RevokesPresentedToken(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, true))
	token := header[len("Bearer "):]
	env.store.On("Revoke", mock.Anything, token, mock.Anything).Return(nil)
	env.events.On("PublishSessionRevoked", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", header, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	env.store.AssertCalled(t, "Revoke", mock.Anything, token, mock.Anything)
}

func TestLogoutAll_MovesWatermark(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, true))
	env.users.On("UpdateSessionsValidAfter", mock.Anything, aliceID, mock.Anything).Return(nil)
	env.store.On("Revoke", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.events.On("PublishSessionsRevokedAll", mock.Anything, aliceID, mock.Anything).Return(nil)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout-all", header, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	env.users.AssertExpectations(t)
}

func TestRefresh_IssuesNewToken(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, true))

	rec := env.do(t, http.MethodPost, "/api/v1/auth/refresh", header, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var session domain.Session
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &session))
	assert.NotEqual(t, header, "Bearer "+session.Token)
	claims, err := env.codec.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, aliceID, claims.Subject)
}

// ============================================================================
// User administration
// ============================================================================

func TestGetUser_RoleGate(t *testing.T) {
	tests := []struct {
		name   string
		caller *domain.Identity
		status int
	}{
		{"member is denied", newIdentity(bobID, "bob", domain.RoleUser, true), http.StatusForbidden},
		{"moderator allowed", newIdentity(modID, "mod", domain.RoleModerator, true), http.StatusOK},
		{"admin allowed", newIdentity(adminID, "admin", domain.RoleAdmin, true), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			header := env.login(t, tt.caller)
			env.users.On("FindIdentityByID", mock.Anything, aliceID).Return(newIdentity(aliceID, "alice", domain.RoleUser, true), nil).Maybe()

			rec := env.do(t, http.MethodGet, "/api/v1/users/"+aliceID, header, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDeleteUser_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	modHeader := env.login(t, newIdentity(modID, "mod", domain.RoleModerator, true))
	adminHeader := env.login(t, newIdentity(adminID, "admin", domain.RoleAdmin, true))
	env.users.On("Delete", mock.Anything, aliceID).Return(nil).Once()

	rec := env.do(t, http.MethodDelete, "/api/v1/users/"+aliceID, modHeader, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/users/"+aliceID, adminHeader, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.users.AssertExpectations(t)
}

func TestGetUser_InvalidUUID(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(adminID, "admin", domain.RoleAdmin, true))

	rec := env.do(t, http.MethodGet, "/api/v1/users/not-a-uuid", header, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", errorCode(t, rec))
}

func TestUserProfile_SelfOrElevated(t *testing.T) {
	env := newTestEnv(t)
	aliceHeader := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, true))
	bobHeader := env.login(t, newIdentity(bobID, "bob", domain.RoleUser, true))
	modHeader := env.login(t, newIdentity(modID, "mod", domain.RoleModerator, true))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/users/"+aliceID+"/profile", aliceHeader, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/v1/users/"+aliceID+"/profile", bobHeader, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/users/"+aliceID+"/profile", modHeader, nil).Code)
}

// ============================================================================
// Content gates
// ============================================================================

func TestPostOwnership(t *testing.T) {
	post := &domain.Resource{Kind: domain.ResourcePost, ID: "p-1", Slug: "hello-world", OwnerID: aliceID}

	tests := []struct {
		name   string
		caller *domain.Identity
		method string
		status int
	}{
		{"owner may edit", newIdentity(aliceID, "alice", domain.RoleUser, false), http.MethodPut, http.StatusNoContent},
		{"other member may not edit", newIdentity(bobID, "bob", domain.RoleUser, true), http.MethodPut, http.StatusForbidden},
		{"moderator may delete", newIdentity(modID, "mod", domain.RoleModerator, true), http.MethodDelete, http.StatusNoContent},
		{"other member may not delete", newIdentity(bobID, "bob", domain.RoleUser, true), http.MethodDelete, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			header := env.login(t, tt.caller)
			env.resources.On("FindResource", mock.Anything, domain.ResourcePost, "hello-world").Return(post, nil)

			var body any
			if tt.method == http.MethodPut {
				body = map[string]string{"title": "edited"}
			}
			rec := env.do(t, tt.method, "/api/v1/posts/hello-world", header, body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPostOwnership_NotFoundBeforePermission(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(bobID, "bob", domain.RoleUser, true))
	env.resources.On("FindResource", mock.Anything, domain.ResourcePost, "missing").Return(nil, apperrors.ErrNotFound)

	rec := env.do(t, http.MethodDelete, "/api/v1/posts/missing", header, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestCommentOwnership_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/comments/"+aliceID, "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.resources.AssertNotCalled(t, "FindResource", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommentOwnership_Owner(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(bobID, "bob", domain.RoleUser, true))
	commentID := "55555555-5555-4555-8555-555555555555"
	env.resources.On("FindResource", mock.Anything, domain.ResourceComment, commentID).
		Return(&domain.Resource{Kind: domain.ResourceComment, ID: commentID, OwnerID: bobID}, nil)

	rec := env.do(t, http.MethodDelete, "/api/v1/comments/"+commentID, header, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreatePost_RequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	unverified := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, false))
	verified := env.login(t, newIdentity(bobID, "bob", domain.RoleUser, true))

	rec := env.do(t, http.MethodPost, "/api/v1/posts", unverified, map[string]string{"title": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/posts", verified, map[string]string{"title": "hi"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// ============================================================================
// Optional authentication
// ============================================================================

func voteCounts(t *testing.T, rec *httptest.ResponseRecorder) VoteCountsResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var resp VoteCountsResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	return resp
}

func TestVoteCounts_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	resp := voteCounts(t, env.do(t, http.MethodGet, "/api/v1/votes/counts/post/p-1", "", nil))

	assert.False(t, resp.Authenticated)
	assert.Equal(t, "post", resp.TargetType)
	assert.Equal(t, "p-1", resp.TargetID)
}

func TestVoteCounts_InvalidCredentialStillServed(t *testing.T) {
	env := newTestEnv(t)

	resp := voteCounts(t, env.do(t, http.MethodGet, "/api/v1/votes/counts/post/p-1", "Bearer garbage", nil))

	assert.False(t, resp.Authenticated)
}

func TestVoteCounts_StoreOutageStillServed(t *testing.T) {
	env := newTestEnv(t)
	token, _, err := env.codec.Issue(aliceID)
	require.NoError(t, err)
	env.store.On("IsRevoked", mock.Anything, token).Return(false, errors.New("timeout"))

	resp := voteCounts(t, env.do(t, http.MethodGet, "/api/v1/votes/counts/comment/c-1", "Bearer "+token, nil))

	assert.False(t, resp.Authenticated)
}

func TestVoteCounts_Authenticated(t *testing.T) {
	env := newTestEnv(t)
	header := env.login(t, newIdentity(aliceID, "alice", domain.RoleUser, true))

	resp := voteCounts(t, env.do(t, http.MethodGet, "/api/v1/votes/counts/post/p-1", header, nil))

	assert.True(t, resp.Authenticated)
	assert.Equal(t, aliceID, resp.ViewerID)
}

func TestVoteCounts_InvalidTargetType(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/votes/counts/category/1", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// Error mapping
// ============================================================================

func TestAuthAppError_CoversEveryKind(t *testing.T) {
	want := map[domain.FailureKind]int{
		domain.NoCredential:      http.StatusUnauthorized,
		domain.InvalidCredential: http.StatusUnauthorized,
		domain.CredentialExpired: http.StatusUnauthorized,
		domain.EmailNotVerified:  http.StatusForbidden,
		domain.ResourceNotFound:  http.StatusNotFound,
		domain.PermissionDenied:  http.StatusForbidden,
		domain.StoreUnavailable:  http.StatusServiceUnavailable,
	}

	for _, kind := range domain.FailureKinds() {
		status, ok := want[kind]
		require.True(t, ok, "no expectation for %s", kind)
		assert.Equal(t, status, authAppError(domain.NewAuthError(kind, nil)).Status, kind.String())
	}
}
