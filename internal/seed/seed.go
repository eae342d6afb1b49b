// Package seed populates an empty store with demo accounts and friend edges.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/models"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "password123"

// Users are the demo accounts, keyed by handle in Friends.
var Users = []auth.Registration{
	{Name: "ada", DisplayName: "Adam Smith", Email: "adam@example.com"},
	{Name: "bob", DisplayName: "Bob Johnson", Email: "bob@example.com"},
	{Name: "cha", DisplayName: "Charlie Brown", Email: "charlie@example.com"},
	{Name: "dav", DisplayName: "Dave Miller", Email: "dave@example.com"},
	{Name: "eli", DisplayName: "Elizabeth Taylor", Email: "e@example.com"},
	{Name: "fra", DisplayName: "Frank Wilson", Email: "frank@example.com"},
}

// Friends lists each demo user's outgoing friend edges.
var Friends = map[string][]string{
	"ada": {"bob", "cha", "dav"},
	"bob": {"ada", "cha", "eli"},
	"cha": {"ada", "bob", "fra"},
	"dav": {"ada", "eli"},
	"eli": {"bob", "dav"},
	"fra": {"cha"},
}

// UserLister reports existing accounts.
type UserLister interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, reg auth.Registration) (*models.User, error)
}

// Friender adds friend edges on behalf of a user.
type Friender interface {
	AddFriend(ctx context.Context, session *models.Session, handle string) (*models.Friend, error)
}

// Seed creates the demo accounts and their friends. It does nothing and
// returns false when any user already exists.
func Seed(ctx context.Context, users UserLister, registrar Registrar, friends Friender, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := users.ListUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list users: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("Store already has users, skipping seed", "users", len(existing))
		return false, nil
	}

	sessions := make(map[string]*models.Session, len(Users))
	for _, reg := range Users {
		reg.Credential = DemoPassword
		user, err := registrar.Register(ctx, reg)
		if err != nil {
			return false, fmt.Errorf("failed to seed user %s: %w", reg.Name, err)
		}
		sessions[user.Name] = &models.Session{UserID: user.ID, Name: user.Name}
	}

	edges := 0
	for _, reg := range Users {
		for _, handle := range Friends[reg.Name] {
			if _, err := friends.AddFriend(ctx, sessions[reg.Name], handle); err != nil {
				return false, fmt.Errorf("failed to seed friend %s -> %s: %w", reg.Name, handle, err)
			}
			edges++
		}
	}

	logger.Info("Seeded demo data", "users", len(Users), "friends", edges)
	return true, nil
}
