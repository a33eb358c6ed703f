package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository owns the authoritative record of live tokens. A token
// that verifies cryptographically but has no live row here is dead.
type SessionRepository interface {
	// Put stores a newly issued token. Under the single-session policy it
	// revokes every prior token for the user in the same transaction, so
	// concurrent logins for one user leave exactly one live row.
	Put(ctx context.Context, userID, token string, expiresAt time.Time) error
	// IsLive reports whether a row exists for (token, userID) with an
	// expiry strictly in the future.
	IsLive(ctx context.Context, token, userID string) (bool, error)
	// RevokeAll deletes every token for the user.
	RevokeAll(ctx context.Context, userID string) error
	// PurgeExpired removes rows past their expiry. Housekeeping only:
	// IsLive already checks expiry on read.
	PurgeExpired(ctx context.Context) (int64, error)
}

type sessionRepository struct {
	pool          *pgxpool.Pool
	singleSession bool
}

// NewSessionRepository returns a Postgres-backed implementation.
// singleSession enables revoke-on-issue; disabling it allows concurrent
// sessions per user.
func NewSessionRepository(pool *pgxpool.Pool, singleSession bool) SessionRepository {
	return &sessionRepository{pool: pool, singleSession: singleSession}
}

func (r *sessionRepository) Put(ctx context.Context, userID, token string, expiresAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if r.singleSession {
		// Under READ COMMITTED a concurrent DELETE cannot see rows
		// committed after its statement snapshot, so two racing logins
		// could each miss the other's insert and both survive. The
		// advisory lock serializes Puts for one user within the tx.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM session_tokens WHERE user_id=$1`, userID); err != nil {
			return err
		}
	}

	const insert = `
        INSERT INTO session_tokens (user_id, token, expires_at)
        VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insert, userID, token, expiresAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *sessionRepository) IsLive(ctx context.Context, token, userID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM session_tokens
            WHERE token=$1 AND user_id=$2 AND expires_at > NOW()
        )`

	var live bool
	if err := r.pool.QueryRow(ctx, query, token, userID).Scan(&live); err != nil {
		return false, err
	}
	return live, nil
}

func (r *sessionRepository) RevokeAll(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM session_tokens WHERE user_id=$1`, userID)
	return err
}

func (r *sessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM session_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
