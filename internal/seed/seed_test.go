package seed

import (
	"context"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/storage/sqlite"
	"github.com/mmynk/splitit/pkg/logging"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	svc := ledger.New(store, ledger.WithLogger(logging.Discard()))

	created, err := Seed(ctx, store, authenticator, svc, logging.Discard())
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if !created {
		t.Fatal("Seed on an empty store reported nothing created")
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != len(Users) {
		t.Errorf("got %d users, want %d", len(users), len(Users))
	}

	ada, err := authenticator.Authenticate(ctx, "adam@example.com", DemoPassword)
	if err != nil {
		t.Fatalf("demo login failed: %v", err)
	}
	friends, err := store.ListFriendsByUser(ctx, ada.ID)
	if err != nil {
		t.Fatalf("ListFriendsByUser failed: %v", err)
	}
	if len(friends) != 3 {
		t.Errorf("ada has %d friends, want 3", len(friends))
	}

	t.Run("idempotent", func(t *testing.T) {
		created, err := Seed(ctx, store, authenticator, svc, logging.Discard())
		if err != nil {
			t.Fatalf("second Seed failed: %v", err)
		}
		if created {
			t.Error("second Seed created data")
		}
		users, _ := store.ListUsers(ctx)
		if len(users) != len(Users) {
			t.Errorf("got %d users after reseed, want %d", len(users), len(Users))
		}
	})
}

func TestFriendsReferenceDemoUsers(t *testing.T) {
	known := make(map[string]bool, len(Users))
	for _, u := range Users {
		known[u.Name] = true
	}
	for from, to := range Friends {
		if !known[from] {
			t.Errorf("friend list for unknown user %q", from)
		}
		for _, h := range to {
			if !known[h] || h == from {
				t.Errorf("bad edge %s -> %s", from, h)
			}
		}
	}
}
