package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/internal/storage/sqlite"
	"github.com/mmynk/splitit/pkg/logging"
)

func setupAuth(t *testing.T) (*sqlite.SQLiteStore, *PasswordAuthenticator, *SessionManager) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	authenticator := NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	sessions := NewSessionManager(authenticator, store, NewJWTManager("test-secret", time.Hour), logging.Discard())
	return store, authenticator, sessions
}

func TestRegister(t *testing.T) {
	_, authenticator, _ := setupAuth(t)
	ctx := context.Background()

	user, err := authenticator.Register(ctx, Registration{Name: " ada ", DisplayName: "Ada", Email: "ada@example.com", Credential: "password123"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Name != "ada" || user.ID == "" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "password123" {
		t.Error("password stored in plain text")
	}

	tests := []struct {
		name    string
		reg     Registration
		wantErr error
	}{
		{"handle taken ignoring case", Registration{Name: "ADA", Credential: "password123"}, models.ErrHandleTaken},
		{"email taken", Registration{Name: "bob", Email: "ada@example.com", Credential: "password123"}, models.ErrEmailTaken},
		{"short password", Registration{Name: "cha", Credential: "short"}, ErrWeakPassword},
		{"empty handle", Registration{Name: "  ", Credential: "password123"}, ErrInvalidHandle},
		{"handle with space", Registration{Name: "d a", Credential: "password123"}, ErrInvalidHandle},
		{"handle with at sign", Registration{Name: "d@v", Credential: "password123"}, ErrInvalidHandle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authenticator.Register(ctx, tt.reg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *models.ValidationError, got %T", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	_, authenticator, _ := setupAuth(t)
	ctx := context.Background()

	if _, err := authenticator.Register(ctx, Registration{Name: "ada", Email: "ada@example.com", Credential: "password123"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		identifier string
		credential string
		wantErr    error
	}{
		{"by handle", "ada", "password123", nil},
		{"by handle ignoring case", "Ada", "password123", nil},
		{"by email", "ada@example.com", "password123", nil},
		{"wrong password", "ada", "password124", ErrInvalidCredentials},
		{"unknown user", "bob", "password123", ErrInvalidCredentials},
		{"empty credential", "ada", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := authenticator.Authenticate(ctx, tt.identifier, tt.credential)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user.Name != "ada" {
				t.Errorf("authenticated wrong user: %+v", user)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	store, authenticator, sessions := setupAuth(t)
	ctx := context.Background()

	user, err := authenticator.Register(ctx, Registration{Name: "ada", Credential: "password123"})
	if err != nil {
		t.Fatal(err)
	}

	first, _, err := sessions.Login(ctx, "ada", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !sessions.IsLoggedIn(ctx, user.ID, first.Token) {
		t.Error("expected first token to be logged in")
	}

	stored, _ := store.GetUserByID(ctx, user.ID)
	if stored.LastLogin.IsZero() {
		t.Error("LastLogin not recorded")
	}

	t.Run("login rotates the token", func(t *testing.T) {
		second, _, err := sessions.Login(ctx, "ada", "password123")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if second.Token == first.Token {
			t.Fatal("token was not rotated")
		}
		if sessions.IsLoggedIn(ctx, user.ID, first.Token) {
			t.Error("rotated token still accepted")
		}
		if _, err := sessions.Resolve(ctx, first.Token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Resolve(old) error = %v, want ErrInvalidToken", err)
		}

		session, err := sessions.Resolve(ctx, second.Token)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if session.UserID != user.ID || session.Name != "ada" {
			t.Errorf("unexpected session: %+v", session)
		}

		t.Run("logout revokes", func(t *testing.T) {
			if err := sessions.Logout(ctx, user.ID); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
			if sessions.IsLoggedIn(ctx, user.ID, second.Token) {
				t.Error("token accepted after logout")
			}
			if err := sessions.Logout(ctx, user.ID); err != nil {
				t.Errorf("second logout should be a no-op, got %v", err)
			}
		})
	})

	t.Run("bad login", func(t *testing.T) {
		if _, _, err := sessions.Login(ctx, "ada", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := sessions.Resolve(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		if _, err := sessions.Resolve(ctx, ""); !errors.Is(err, ErrMissingToken) {
			t.Errorf("expected ErrMissingToken, got %v", err)
		}
	})
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.Generate(&models.User{ID: "u1", Name: "ada"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Name != "ada" || claims.ID == "" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	other := NewJWTManager("other-secret", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret accepted: %v", err)
	}

	expired := NewJWTManager("secret", -time.Minute)
	old, _ := expired.Generate(&models.User{ID: "u1"})
	if _, err := m.Validate(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}
}
