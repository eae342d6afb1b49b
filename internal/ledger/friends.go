package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/splitit/internal/calculator"
	"github.com/mmynk/splitit/internal/models"
)

// FriendView is a friend with the current handle, display name and balance.
type FriendView struct {
	Friend  *models.Friend `json:"friend"`
	Name    string         `json:"name"`
	Balance float64        `json:"balance"`
	Summary string         `json:"summary"`
}

// AddFriend adds an edge from the session user to the user with the given handle.
func (s *Service) AddFriend(ctx context.Context, session *models.Session, handle string) (*models.Friend, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, models.Invalid("name", models.ErrEmptyName)
	}

	target, err := s.store.GetUserByName(ctx, handle)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Invalid("name", fmt.Errorf("%w: %s", models.ErrUnknownUser, handle))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if target.ID == session.UserID {
		return nil, models.Invalid("name", models.ErrSelfFriend)
	}

	existing, err := s.store.ListFriendsByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	for _, f := range existing {
		if f.FriendUserID == target.ID || strings.EqualFold(f.Name, target.Name) {
			return nil, models.Invalid("name", models.ErrDuplicateFriend)
		}
	}

	friend := &models.Friend{
		ID:           uuid.New().String(),
		Name:         target.Name,
		FriendUserID: target.ID,
		Email:        target.Email,
		CreatedAt:    s.now().UTC(),
		UserID:       session.UserID,
	}
	if err := s.store.CreateFriend(ctx, friend); err != nil {
		return nil, err
	}

	s.logger.Info("Friend added", "user_id", session.UserID, "friend_user_id", target.ID)
	return friend, nil
}

// ListFriends returns the session user's friends with their overall balance.
func (s *Service) ListFriends(ctx context.Context, session *models.Session) ([]FriendView, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	friends, err := s.store.ListFriendsByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	expenses, err := s.store.ListExpensesForUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	balances := calculator.Balances(expenses, session.UserID)

	ids := make([]string, len(friends))
	for i, f := range friends {
		ids[i] = f.FriendUserID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	views := make([]FriendView, 0, len(friends))
	for _, f := range friends {
		name := f.Name
		if u, ok := users[f.FriendUserID]; ok {
			name = u.Label()
		}
		balance := s.formatter.Round(balances[f.FriendUserID])
		views = append(views, FriendView{
			Friend:  f,
			Name:    name,
			Balance: balance,
			Summary: s.formatter.Describe(balance),
		})
	}
	return views, nil
}
