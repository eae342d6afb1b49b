package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitit/internal/models"
)

// SessionStorage is the subset of the store the session manager needs.
type SessionStorage interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// SessionManager issues, checks and revokes login sessions. The token issued at
// login is stored on the user, so a new login rotates it and logout revokes it
// even though the JWT itself has not expired.
type SessionManager struct {
	auth   Authenticator
	users  SessionStorage
	tokens *JWTManager
	now    func() time.Time
	logger *slog.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(authenticator Authenticator, users SessionStorage, tokens *JWTManager, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		auth:   authenticator,
		users:  users,
		tokens: tokens,
		now:    time.Now,
		logger: logger,
	}
}

// Login authenticates identifier (handle or email) and issues a fresh token.
func (m *SessionManager) Login(ctx context.Context, identifier, credential string) (*models.Session, *models.User, error) {
	user, err := m.auth.Authenticate(ctx, identifier, credential)
	if err != nil {
		return nil, nil, err
	}

	token, err := m.tokens.Generate(user)
	if err != nil {
		return nil, nil, err
	}

	now := m.now().UTC()
	user.AuthToken = token
	user.LastLogin = now
	user.UpdatedAt = now
	if err := m.users.UpdateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to store session: %w", err)
	}

	m.logger.Info("User logged in", "user_id", user.ID)
	return &models.Session{UserID: user.ID, Name: user.Name, Token: token}, user, nil
}

// IsLoggedIn reports whether token is the user's current, unexpired token.
func (m *SessionManager) IsLoggedIn(ctx context.Context, userID, token string) bool {
	if userID == "" || token == "" {
		return false
	}
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user.AuthToken), []byte(token)) != 1 {
		return false
	}
	_, err = m.tokens.Validate(token)
	return err == nil
}

// Resolve turns a bearer token into a session. Revoked and rotated tokens are rejected.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if !m.IsLoggedIn(ctx, claims.UserID, token) {
		return nil, ErrInvalidToken
	}
	return &models.Session{UserID: claims.UserID, Name: claims.Name, Token: token}, nil
}

// Logout clears the user's stored token.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	user, err := m.users.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.AuthToken == "" {
		return nil
	}

	user.AuthToken = ""
	user.UpdatedAt = m.now().UTC()
	if err := m.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.logger.Info("User logged out", "user_id", userID)
	return nil
}
