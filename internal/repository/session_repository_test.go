package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/opx-exchange/auth-service/internal/domain"
)

// Integration tests against a real Postgres. Set TEST_POSTGRES_DSN to run;
// skipped otherwise. The concurrency tests exercise guarantees the
// in-memory fakes satisfy trivially.

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    username      VARCHAR(20) NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          VARCHAR(16) NOT NULL DEFAULT 'USER',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_tokens (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token      TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	ctx := context.Background()
	id := uuid.NewString()
	user := &domain.User{
		ID:           id,
		Username:     "u" + id[:18],
		Email:        id + "@x.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
	}
	require.NoError(t, NewUserRepository(pool).Create(ctx, user))

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	})
	return id
}

func liveRowCount(t *testing.T, pool *pgxpool.Pool, userID string) int {
	t.Helper()

	var count int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM session_tokens WHERE user_id=$1 AND expires_at > NOW()`,
		userID,
	).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestPutConcurrentLoginsLeaveOneLiveRow(t *testing.T) {
	pool := testPool(t)
	userID := createTestUser(t, pool)
	repo := NewSessionRepository(pool, true)
	ctx := context.Background()

	// Each writer runs its own delete-then-insert transaction; however
	// they interleave, exactly one row may survive.
	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("concurrent-%s-%d", userID, i)
			require.NoError(t, repo.Put(ctx, userID, token, time.Now().Add(24*time.Hour)))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, liveRowCount(t, pool, userID))
}

func TestPutRevokesPriorToken(t *testing.T) {
	pool := testPool(t)
	userID := createTestUser(t, pool)
	repo := NewSessionRepository(pool, true)
	ctx := context.Background()

	expiresAt := time.Now().Add(24 * time.Hour)
	require.NoError(t, repo.Put(ctx, userID, "first-"+userID, expiresAt))
	require.NoError(t, repo.Put(ctx, userID, "second-"+userID, expiresAt))

	live, err := repo.IsLive(ctx, "first-"+userID, userID)
	require.NoError(t, err)
	require.False(t, live)

	live, err = repo.IsLive(ctx, "second-"+userID, userID)
	require.NoError(t, err)
	require.True(t, live)
	require.Equal(t, 1, liveRowCount(t, pool, userID))
}

func TestIsLiveIgnoresExpiredRows(t *testing.T) {
	pool := testPool(t)
	userID := createTestUser(t, pool)
	repo := NewSessionRepository(pool, true)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, userID, "expired-"+userID, time.Now().Add(-time.Minute)))

	live, err := repo.IsLive(ctx, "expired-"+userID, userID)
	require.NoError(t, err)
	require.False(t, live)

	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, purged, int64(1))
}
