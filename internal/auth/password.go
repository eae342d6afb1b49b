package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitit/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid handle, email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidHandle      = errors.New("handle must be 1-32 characters without spaces or @")
)

const (
	minPasswordLength = 8
	maxHandleLength   = 32
)

// UserStorage defines the interface for user persistence operations.
// This allows the authenticator to be independent of the storage implementation.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
	now     func() time.Time
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// ValidateHandle checks a user handle. Handles never contain "@" so an email and a
// handle cannot be confused at login.
func ValidateHandle(name string) error {
	if name == "" || len(name) > maxHandleLength || strings.ContainsRune(name, '@') {
		return ErrInvalidHandle
	}
	for _, r := range name {
		if unicode.IsSpace(r) {
			return ErrInvalidHandle
		}
	}
	return nil
}

// Register creates a new user account with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, reg Registration) (*models.User, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.TrimSpace(reg.Email)

	if err := ValidateHandle(name); err != nil {
		return nil, models.Invalid("name", err)
	}
	if err := a.ValidateCredential(reg.Credential); err != nil {
		return nil, models.Invalid("password", err)
	}

	// Check if handle or email already exists
	if _, err := a.storage.GetUserByName(ctx, name); err == nil {
		return nil, models.Invalid("name", models.ErrHandleTaken)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check handle: %w", err)
	}
	if email != "" {
		if _, err := a.storage.GetUserByEmail(ctx, email); err == nil {
			return nil, models.Invalid("email", models.ErrEmailTaken)
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Credential), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		DisplayName:  strings.TrimSpace(reg.DisplayName),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate looks the user up by email when identifier contains "@" and by
// handle otherwise, then verifies the password.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, identifier, credential string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || credential == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		user *models.User
		err  error
	)
	if strings.ContainsRune(identifier, '@') {
		user, err = a.storage.GetUserByEmail(ctx, identifier)
	} else {
		user, err = a.storage.GetUserByName(ctx, identifier)
	}
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Compare password hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// HashPassword hashes password at the given bcrypt cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
