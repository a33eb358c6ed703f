package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opx-exchange/auth-service/internal/auth"
	"github.com/opx-exchange/auth-service/internal/domain"
	"github.com/opx-exchange/auth-service/internal/events"
	"github.com/opx-exchange/auth-service/internal/repository"
	apperrors "github.com/opx-exchange/auth-service/pkg/util"
)

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenManager
	limiter    *LoginLimiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborator requirements.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Tokens      *auth.TokenManager
	Limiter     *LoginLimiter
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// AuthResult is returned by flows that mint a session.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account and its first session. Issuing the
// session revokes any token a racing registration may have left behind.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*AuthResult, error) {
	if username == "" || password == "" || email == "" {
		return nil, apperrors.NewValidationError("username, email and password are required", nil)
	}
	if !domain.ValidUsername(username) {
		return nil, apperrors.NewValidationError("username must be 3-20 letters, digits or underscores", nil)
	}
	if !domain.ValidEmail(email) {
		return nil, apperrors.NewValidationError("invalid email format", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDuplicate("email")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewDuplicate("username")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordLength) {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		s.logger.Error("password hashing failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The pre-checks race with concurrent registrations; the unique
		// index is the authority.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicate("username or email")
		}
		return nil, apperrors.NewInternalError(err)
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, map[string]string{"username": username})
	return result, nil
}

// Login authenticates by email and password and mints a fresh session,
// revoking prior ones under the single-session policy.
func (s *AuthService) Login(ctx context.Context, email, password, remoteIP string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	if !s.limiter.Allow(ctx, email, remoteIP) {
		return nil, apperrors.NewRateLimited("too many login attempts")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("credential verification failed", zap.Error(err), zap.String("user_id", user.ID))
		return nil, apperrors.NewInternalError(err)
	}
	if !ok {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserLogin, user.ID, map[string]string{"ip": remoteIP})
	return result, nil
}

// Logout revokes every session for the user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.EventSessionRevoked, userID, nil)
	return nil
}

// ListUsers returns all accounts. Role enforcement happens at the gate.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.Error("token issuance failed", zap.Error(err), zap.String("user_id", user.ID))
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Put(ctx, user.ID, token, expiresAt); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, metadata map[string]string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now(),
		Metadata:   metadata,
	})
}
