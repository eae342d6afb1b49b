package auth

import (
	"context"

	"github.com/mmynk/splitit/internal/models"
)

// Registration is the input for creating an account.
type Registration struct {
	// Name is the unique handle other users add as a friend.
	Name        string
	DisplayName string
	Email       string
	Credential  string
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the session or service code.
type Authenticator interface {
	// Register creates a new user account.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, reg Registration) (*models.User, error)

	// Authenticate verifies the credential of the user identified by handle or email
	// and returns the user if successful.
	Authenticate(ctx context.Context, identifier, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
