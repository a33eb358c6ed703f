package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/opx-exchange/auth-service/internal/domain"
)

// SessionTTL is the fixed lifetime of every issued token.
const SessionTTL = 24 * time.Hour

var (
	// ErrMissingSecret means the signing secret was absent at construction.
	// Callers must treat this as fatal at startup.
	ErrMissingSecret = errors.New("signing secret is missing")
	// ErrTokenExpired means the signature checked out but the token's
	// lifetime has passed. Routine condition, prompts re-login.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure: bad
	// signature, malformed payload, wrong algorithm, missing claims.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenManager issues and verifies signed session tokens. It is stateless:
// revocation lives in the session store, not here.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager builds a manager around a server-held symmetric secret.
func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenManager{secret: []byte(secret), now: time.Now}, nil
}

// Claims is the signed token payload. Verification rejects tokens with a
// missing or unknown userId/role rather than passing them through.
type Claims struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token binding the user identity and role, expiring
// SessionTTL from now.
func (tm *TokenManager) Issue(userID string, role domain.Role) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(SessionTTL)
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Expired and invalid remain distinguishable so callers can log tampering
// at a different severity than a routine expiry.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, ErrTokenInvalid
			}
			return tm.secret, nil
		},
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
