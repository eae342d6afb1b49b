// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/mmynk/splitit/internal/models"
)

// Store is the durable record store for users, friends, groups and expenses.
// Lookups of a missing key return a *models.NotFoundError.
type Store interface {
	UserStore
	FriendStore
	GroupStore
	ExpenseStore

	// CountUnsynced returns how many expenses and groups still carry local changes.
	CountUnsynced(ctx context.Context) (expenses, groups int, err error)

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts user. Handle and email collisions return models.ErrHandleTaken
	// or models.ErrEmailTaken wrapped in a *models.ValidationError.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByName looks a handle up case-insensitively.
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByAuthToken(ctx context.Context, token string) (*models.User, error)

	// GetUsersByIDs omits IDs that do not exist.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// FriendStore persists directed friend edges.
type FriendStore interface {
	CreateFriend(ctx context.Context, friend *models.Friend) error
	ListFriendsByUser(ctx context.Context, userID string) ([]*models.Friend, error)

	// GetFriendByName finds userID's edge to a handle, case-insensitively.
	GetFriendByName(ctx context.Context, userID, name string) (*models.Friend, error)
}

// GroupStore persists groups and their member IDs.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	ListGroupsByOwner(ctx context.Context, userID string) ([]*models.Group, error)

	// ListGroupsForUser returns groups userID owns or is a member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)
	ListGroupsByName(ctx context.Context, name string) ([]*models.Group, error)

	// ListUnsyncedGroups returns up to limit dirty groups, oldest change first.
	// A limit <= 0 returns all of them.
	ListUnsyncedGroups(ctx context.Context, limit int) ([]*models.Group, error)

	// MarkGroupSynced sets synced only if the group still has the given updatedAt.
	// It reports whether the flag was flipped.
	MarkGroupSynced(ctx context.Context, id string, updatedAt time.Time) (bool, error)

	// DetachAndDeleteGroup clears groupId on every expense of the group, marks those
	// expenses dirty and deletes the group, all in one transaction. It returns the
	// number of detached expenses. On failure nothing is changed.
	DetachAndDeleteGroup(ctx context.Context, groupID string, now time.Time) (int, error)
}

// ExpenseStore persists expenses and their participants.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id string) error

	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	ListExpensesByPayer(ctx context.Context, userID string) ([]*models.Expense, error)
	ListExpensesByOwner(ctx context.Context, userID string) ([]*models.Expense, error)

	// ListExpensesForUser returns expenses userID recorded, paid or participates in,
	// newest date first.
	ListExpensesForUser(ctx context.Context, userID string) ([]*models.Expense, error)

	// ListExpensesByDate returns expenses dated in [from, to), oldest first.
	ListExpensesByDate(ctx context.Context, from, to time.Time) ([]*models.Expense, error)

	// ListUnsyncedExpenses returns up to limit dirty expenses, oldest change first.
	// A limit <= 0 returns all of them.
	ListUnsyncedExpenses(ctx context.Context, limit int) ([]*models.Expense, error)

	// MarkExpenseSynced sets synced only if the expense still has the given updatedAt.
	// It reports whether the flag was flipped.
	MarkExpenseSynced(ctx context.Context, id string, updatedAt time.Time) (bool, error)

	// DeleteExpensesByOwner removes every expense recorded by userID.
	DeleteExpensesByOwner(ctx context.Context, userID string) (int, error)
}
