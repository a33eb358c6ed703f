package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opx-exchange/auth-service/internal/domain"
	apperrors "github.com/opx-exchange/auth-service/pkg/util"
)

// fakeSessionStore is an in-memory stand-in for the Postgres-backed
// session repository.
type fakeSessionStore struct {
	mu   sync.Mutex
	rows map[string]fakeSessionRow // token -> row
}

type fakeSessionRow struct {
	userID    string
	expiresAt time.Time
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: make(map[string]fakeSessionRow)}
}

func (f *fakeSessionStore) Put(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for existing, row := range f.rows {
		if row.userID == userID {
			delete(f.rows, existing)
		}
	}
	f.rows[token] = fakeSessionRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeSessionStore) IsLive(_ context.Context, token, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	return ok && row.userID == userID && row.expiresAt.After(time.Now()), nil
}

func (f *fakeSessionStore) RevokeAll(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, row := range f.rows {
		if row.userID == userID {
			delete(f.rows, token)
		}
	}
	return nil
}

func (f *fakeSessionStore) PurgeExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func newGateApp(t *testing.T, tm *TokenManager, sessions *fakeSessionStore) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": domainErr.Message})
		}
		return nil
	})

	middleware := NewAuthMiddleware(tm, sessions, zap.NewNop())
	protected := app.Group("", middleware.Handle)
	protected.Get("/whoami", func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"userId": principal.UserID, "role": principal.Role})
	})
	protected.Get("/admin", RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func authGet(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGateRejectsMissingOrMalformedHeader(t *testing.T) {
	tm := newTestManager(t, "test-secret")
	app := newGateApp(t, tm, newFakeSessionStore())

	for _, header := range []string{"", "Basic abc", "Bearer", "token-without-scheme"} {
		resp := authGet(t, app, "/whoami", header)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header=%q", header)
	}
}

func TestGateAcceptsLiveToken(t *testing.T) {
	tm := newTestManager(t, "test-secret")
	sessions := newFakeSessionStore()
	app := newGateApp(t, tm, sessions)

	token, expiresAt, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, sessions.Put(context.Background(), "user-1", token, expiresAt))

	resp := authGet(t, app, "/whoami", "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateRejectsTokenWithoutLiveSession(t *testing.T) {
	tm := newTestManager(t, "test-secret")
	sessions := newFakeSessionStore()
	app := newGateApp(t, tm, sessions)

	// Signature and expiry are valid, but the ledger has no row: a
	// superseded token must not authorize.
	token, _, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	resp := authGet(t, app, "/whoami", "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateRevokesSupersededToken(t *testing.T) {
	tm := newTestManager(t, "test-secret")
	sessions := newFakeSessionStore()
	app := newGateApp(t, tm, sessions)

	first, firstExp, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, sessions.Put(context.Background(), "user-1", first, firstExp))

	second, secondExp, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, sessions.Put(context.Background(), "user-1", second, secondExp))

	resp := authGet(t, app, "/whoami", "Bearer "+first)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = authGet(t, app, "/whoami", "Bearer "+second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateRejectsExpiredToken(t *testing.T) {
	tm := newTestManager(t, "test-secret")
	sessions := newFakeSessionStore()
	app := newGateApp(t, tm, sessions)

	tm.now = func() time.Time { return time.Now().Add(-SessionTTL - time.Hour) }
	token, expiresAt, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)
	tm.now = time.Now

	// Even a stored row cannot resurrect an expired token.
	require.NoError(t, sessions.Put(context.Background(), "user-1", token, expiresAt))

	resp := authGet(t, app, "/whoami", "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateEnforcesRole(t *testing.T) {
	tm := newTestManager(t, "test-secret")
	sessions := newFakeSessionStore()
	app := newGateApp(t, tm, sessions)

	userToken, userExp, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, sessions.Put(context.Background(), "user-1", userToken, userExp))

	resp := authGet(t, app, "/admin", "Bearer "+userToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken, adminExp, err := tm.Issue("admin-1", domain.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, sessions.Put(context.Background(), "admin-1", adminToken, adminExp))

	resp = authGet(t, app, "/admin", "Bearer "+adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
