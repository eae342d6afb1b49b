package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/splitit/internal/calculator"
	"github.com/mmynk/splitit/internal/models"
)

// GroupInput describes a new group. The owner is always added as a member.
type GroupInput struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// GroupUpdate changes the non-nil fields of a group.
type GroupUpdate struct {
	Name      *string   `json:"name,omitempty"`
	MemberIDs *[]string `json:"memberIds,omitempty"`
}

// GroupDetail is a group with its expenses, the caller's subtotal per counterparty
// and a plan that would settle the group.
type GroupDetail struct {
	Group    *models.Group              `json:"group"`
	Expenses []*models.Expense          `json:"expenses"`
	Total    float64                    `json:"total"`
	Balances []CounterpartyBalance      `json:"balances"`
	Members  []calculator.MemberBalance `json:"members"`
	SettleUp []calculator.DebtEdge      `json:"settleUp"`
}

// CreateGroup validates and persists a new, unsynced group owned by the session user.
func (s *Service) CreateGroup(ctx context.Context, session *models.Session, in GroupInput) (*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.Invalid("name", models.ErrEmptyName)
	}
	members, err := s.resolveMembers(ctx, session.UserID, in.MemberIDs)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	g := &models.Group{
		ID:        uuid.New().String(),
		Name:      name,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    session.UserID,
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.logger.Info("Group created", "group_id", g.ID, "user_id", session.UserID, "members", len(members))
	s.changed()
	return g, nil
}

// UpdateGroup renames the group or replaces its members. Only the owner may do it.
func (s *Service) UpdateGroup(ctx context.Context, session *models.Session, id string, upd GroupUpdate) (*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != session.UserID {
		return nil, models.ErrForbidden
	}
	if upd.Name == nil && upd.MemberIDs == nil {
		return g, nil
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, models.Invalid("name", models.ErrEmptyName)
		}
		g.Name = name
	}
	if upd.MemberIDs != nil {
		members, err := s.resolveMembers(ctx, session.UserID, *upd.MemberIDs)
		if err != nil {
			return nil, err
		}
		g.Members = members
	}

	g.UpdatedAt = s.stamp(g.UpdatedAt)
	g.Synced = false
	if err := s.store.UpdateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	s.logger.Info("Group updated", "group_id", g.ID, "user_id", session.UserID)
	s.changed()
	return g, nil
}

// DeleteGroup detaches the group's expenses, turning them into personal expenses,
// and deletes the group in a single transaction. It returns the number of detached
// expenses.
func (s *Service) DeleteGroup(ctx context.Context, session *models.Session, id string) (int, error) {
	if err := requireSession(session); err != nil {
		return 0, err
	}

	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return 0, err
	}
	if g.UserID != session.UserID {
		return 0, models.ErrForbidden
	}

	detached, err := s.store.DetachAndDeleteGroup(ctx, id, s.now().UTC())
	if err != nil {
		s.logger.Error("Failed to delete group", "group_id", id, "error", err)
		return 0, err
	}

	s.logger.Info("Group deleted", "group_id", id, "user_id", session.UserID, "detached_expenses", detached)
	s.changed()
	return detached, nil
}

// GetGroup returns a group the session user owns or belongs to.
func (s *Service) GetGroup(ctx context.Context, session *models.Session, id string) (*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != session.UserID && !g.HasMember(session.UserID) {
		return nil, models.ErrForbidden
	}
	return g, nil
}

// ListGroups returns every group the session user owns or belongs to.
func (s *Service) ListGroups(ctx context.Context, session *models.Session) ([]*models.Group, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return s.store.ListGroupsForUser(ctx, session.UserID)
}

// GroupDetail returns the group's expenses, the caller's subtotal with every
// counterparty inside the group and a settle-up plan for all members.
func (s *Service) GroupDetail(ctx context.Context, session *models.Session, id string) (*GroupDetail, error) {
	g, err := s.GetGroup(ctx, session, id)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, e := range expenses {
		total += e.Amount
	}

	balances, err := s.counterparties(ctx, calculator.GroupBalances(expenses, session.UserID, id))
	if err != nil {
		return nil, err
	}
	members, plan := calculator.SettleUp(expenses)

	return &GroupDetail{
		Group:    g,
		Expenses: expenses,
		Total:    s.formatter.Round(total),
		Balances: balances,
		Members:  members,
		SettleUp: plan,
	}, nil
}

// resolveMembers validates member IDs against the owner's friends and puts the
// owner first. Duplicates are dropped.
func (s *Service) resolveMembers(ctx context.Context, ownerID string, memberIDs []string) ([]models.Member, error) {
	friends, err := s.store.ListFriendsByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	isFriend := make(map[string]bool, len(friends))
	for _, f := range friends {
		isFriend[f.FriendUserID] = true
	}

	ids := []string{ownerID}
	seen := map[string]bool{ownerID: true}
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if !isFriend[id] {
			return nil, models.Invalid("members", fmt.Errorf("%w: %s", models.ErrMemberNotFriend, id))
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, models.Invalid("members", models.ErrNoMembers)
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	members := make([]models.Member, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			return nil, models.Invalid("members", fmt.Errorf("%w: %s", models.ErrUnknownUser, id))
		}
		members = append(members, models.Member{ID: id, Name: u.Label()})
	}
	return members, nil
}
