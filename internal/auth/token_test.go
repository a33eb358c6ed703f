package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opx-exchange/auth-service/internal/domain"
)

func newTestManager(t *testing.T, secret string) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(secret)
	require.NoError(t, err)
	return tm
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("")
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueThenVerify(t *testing.T) {
	tm := newTestManager(t, "test-secret")

	issued := time.Now()
	token, expiresAt, err := tm.Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)
	require.WithinDuration(t, issued.Add(SessionTTL), expiresAt, 2*time.Second)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestVerifyExpiredToken(t *testing.T) {
	tm := newTestManager(t, "test-secret")

	// Issue in the past, verify at present: signature is fine, the
	// lifetime is not.
	tm.now = func() time.Time { return time.Now().Add(-SessionTTL - time.Hour) }
	token, _, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newTestManager(t, "secret-a")
	verifier := newTestManager(t, "secret-b")

	token, _, err := issuer.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.NotErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyGarbage(t *testing.T) {
	tm := newTestManager(t, "test-secret")

	for _, token := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := tm.Verify(token)
		require.ErrorIs(t, err, ErrTokenInvalid, "token=%q", token)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	tm := newTestManager(t, "test-secret")

	token, _, err := tm.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = tm.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
