package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/models"
)

// ProfileUpdate changes the non-nil fields of the session user's profile.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// UnsyncedCounts is the number of records still waiting for the sync remote.
type UnsyncedCounts struct {
	Expenses int `json:"expenses"`
	Groups   int `json:"groups"`
}

// Profile returns the session user's account with credentials stripped.
func (s *Service) Profile(ctx context.Context, session *models.Session) (*models.User, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	public := u.Public()
	return &public, nil
}

// UpdateProfile edits the handle, display name or email. Handle and email stay unique.
func (s *Service) UpdateProfile(ctx context.Context, session *models.Session, upd ProfileUpdate) (*models.User, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := auth.ValidateHandle(name); err != nil {
			return nil, models.Invalid("name", err)
		}
		if err := s.ensureUnused(ctx, u.ID, "name", name); err != nil {
			return nil, err
		}
		u.Name = name
	}
	if upd.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email != "" {
			if err := s.ensureUnused(ctx, u.ID, "email", email); err != nil {
				return nil, err
			}
		}
		u.Email = email
	}

	u.UpdatedAt = s.stamp(u.UpdatedAt)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated", "user_id", u.ID)
	public := u.Public()
	return &public, nil
}

func (s *Service) ensureUnused(ctx context.Context, selfID, field, value string) error {
	var (
		other *models.User
		err   error
		taken error
	)
	if field == "email" {
		other, err = s.store.GetUserByEmail(ctx, value)
		taken = models.ErrEmailTaken
	} else {
		other, err = s.store.GetUserByName(ctx, value)
		taken = models.ErrHandleTaken
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check %s: %w", field, err)
	case other.ID != selfID:
		return models.Invalid(field, taken)
	default:
		return nil
	}
}

// UnsyncedCounts reports how many expenses and groups have not been synced yet.
func (s *Service) UnsyncedCounts(ctx context.Context) (UnsyncedCounts, error) {
	expenses, groups, err := s.store.CountUnsynced(ctx)
	if err != nil {
		return UnsyncedCounts{}, err
	}
	return UnsyncedCounts{Expenses: expenses, Groups: groups}, nil
}

// Export returns a snapshot of everything visible to the session user: their
// expenses and groups and the users those reference. Credentials are stripped.
func (s *Service) Export(ctx context.Context, session *models.Session) (*models.Snapshot, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesForUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	groups, err := s.store.ListGroupsForUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	seen := map[string]bool{session.UserID: true}
	ids := []string{session.UserID}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, e := range expenses {
		add(e.UserID)
		add(e.PaidBy)
		for _, p := range e.Participants {
			add(p.ID)
		}
	}
	for _, g := range groups {
		add(g.UserID)
		for _, m := range g.Members {
			add(m.ID)
		}
	}

	byID, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	users := make([]models.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u.Public())
		}
	}

	return s.snapshot(expenses, groups, users), nil
}

// Bounds for a date query covering every representable date.
var (
	minTime = time.Unix(0, math.MinInt64)
	maxTime = time.Unix(0, math.MaxInt64)
)

// ExportAll returns a snapshot of the whole store. It is meant for operators.
func (s *Service) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	expenses, err := s.store.ListExpensesByDate(ctx, minTime, maxTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	all, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	users := make([]models.User, 0, len(all))
	seenGroup := map[string]bool{}
	var groups []*models.Group
	for _, u := range all {
		users = append(users, u.Public())
		owned, err := s.store.ListGroupsByOwner(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load groups: %w", err)
		}
		for _, g := range owned {
			if !seenGroup[g.ID] {
				seenGroup[g.ID] = true
				groups = append(groups, g)
			}
		}
	}

	return s.snapshot(expenses, groups, users), nil
}

func (s *Service) snapshot(expenses []*models.Expense, groups []*models.Group, users []models.User) *models.Snapshot {
	if expenses == nil {
		expenses = []*models.Expense{}
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	return &models.Snapshot{
		Expenses:   expenses,
		Groups:     groups,
		Users:      users,
		ExportedAt: s.now().UTC(),
	}
}
