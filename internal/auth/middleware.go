package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/opx-exchange/auth-service/internal/domain"
	"github.com/opx-exchange/auth-service/internal/repository"
	apperrors "github.com/opx-exchange/auth-service/pkg/util"
)

const principalKey = "auth_principal"

// Messages sent to external callers. Expired, tampered and revoked tokens
// all collapse into one message so responses cannot be used as an oracle
// for token validity.
const (
	msgMissingToken = "missing token"
	msgBadToken     = "invalid or expired token"
)

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
	Role   domain.Role
}

// AuthMiddleware validates bearer tokens against both the signature and
// the live-session ledger. A signed-but-superseded token must not pass.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions repository.SessionRepository
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions repository.SessionRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized(msgMissingToken)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized(msgMissingToken)
	}
	token := parts[1]

	claims, err := m.tokens.Verify(token)
	if err != nil {
		// Expiry is routine; a bad signature may be tampering and is
		// logged louder. The response body stays identical either way.
		if errors.Is(err, ErrTokenExpired) {
			m.logger.Info("rejected expired token", zap.String("path", c.Path()))
		} else {
			m.logger.Warn("rejected invalid token", zap.String("path", c.Path()))
		}
		return apperrors.NewUnauthorized(msgBadToken)
	}

	live, err := m.sessions.IsLive(c.UserContext(), token, claims.UserID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !live {
		m.logger.Info("rejected token without live session",
			zap.String("user_id", claims.UserID))
		return apperrors.NewUnauthorized(msgBadToken)
	}

	c.Locals(principalKey, &Principal{UserID: claims.UserID, Role: claims.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
