package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitit/internal/calculator"
	"github.com/mmynk/splitit/internal/models"
)

// ExpenseInput describes a new expense. Participant names are ignored; they are
// taken from the user records.
type ExpenseInput struct {
	Title        string               `json:"title"`
	Amount       float64              `json:"amount"`
	PaidBy       string               `json:"paidBy"`
	Participants []models.Participant `json:"participants"`
	SplitMode    models.SplitMode     `json:"splitMode"`
	Date         time.Time            `json:"date"`
	GroupID      string               `json:"groupId,omitempty"`
	Notes        string               `json:"notes,omitempty"`
}

// ExpenseUpdate changes the non-nil fields of an expense. An empty GroupID
// detaches the expense from its group.
type ExpenseUpdate struct {
	Title        *string               `json:"title,omitempty"`
	Amount       *float64              `json:"amount,omitempty"`
	PaidBy       *string               `json:"paidBy,omitempty"`
	Participants *[]models.Participant `json:"participants,omitempty"`
	SplitMode    *models.SplitMode     `json:"splitMode,omitempty"`
	Date         *time.Time            `json:"date,omitempty"`
	GroupID      *string               `json:"groupId,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
}

func (u ExpenseUpdate) empty() bool {
	return u.Title == nil && u.Amount == nil && u.PaidBy == nil && u.Participants == nil &&
		u.SplitMode == nil && u.Date == nil && u.GroupID == nil && u.Notes == nil
}

// ExpenseView is an expense with every participant's obligation and net position.
type ExpenseView struct {
	Expense   *models.Expense    `json:"expense"`
	Owed      map[string]float64 `json:"owed"`
	Net       map[string]float64 `json:"net"`
	GroupName string             `json:"groupName,omitempty"`
	PaidBy    string             `json:"paidByName"`
}

// CreateExpense validates input through the split engine and persists a new,
// unsynced expense recorded by the session user.
func (s *Service) CreateExpense(ctx context.Context, session *models.Session, in ExpenseInput) (*models.Expense, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := &models.Expense{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Amount:       in.Amount,
		PaidBy:       in.PaidBy,
		Participants: in.Participants,
		SplitMode:    in.SplitMode,
		Date:         in.Date,
		GroupID:      in.GroupID,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		UserID:       session.UserID,
	}
	if e.Date.IsZero() {
		e.Date = now
	}

	if err := s.validateExpense(ctx, session, e); err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.logger.Info("Expense created",
		"expense_id", e.ID,
		"user_id", session.UserID,
		"group_id", e.GroupID,
		"participants", len(e.Participants),
	)
	s.changed()
	return e, nil
}

// UpdateExpense applies upd, re-runs the split engine and marks the expense dirty.
func (s *Service) UpdateExpense(ctx context.Context, session *models.Session, id string, upd ExpenseUpdate) (*models.Expense, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTouchExpense(e, session.UserID) {
		return nil, models.ErrForbidden
	}
	if upd.empty() {
		return e, nil
	}

	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Amount != nil {
		e.Amount = *upd.Amount
	}
	if upd.PaidBy != nil {
		e.PaidBy = *upd.PaidBy
	}
	if upd.Participants != nil {
		e.Participants = *upd.Participants
	}
	if upd.SplitMode != nil {
		e.SplitMode = *upd.SplitMode
	}
	if upd.Date != nil && !upd.Date.IsZero() {
		e.Date = *upd.Date
	}
	if upd.GroupID != nil {
		e.GroupID = *upd.GroupID
	}
	if upd.Notes != nil {
		e.Notes = *upd.Notes
	}

	if err := s.validateExpense(ctx, session, e); err != nil {
		return nil, err
	}

	e.UpdatedAt = s.stamp(e.UpdatedAt)
	e.Synced = false

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	s.logger.Info("Expense updated", "expense_id", e.ID, "user_id", session.UserID)
	s.changed()
	return e, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, session *models.Session, id string) error {
	if err := requireSession(session); err != nil {
		return err
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if !canTouchExpense(e, session.UserID) {
		return models.ErrForbidden
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Expense deleted", "expense_id", id, "user_id", session.UserID)
	s.changed()
	return nil
}

// GetExpense returns the expense with per-participant owed and net amounts.
func (s *Service) GetExpense(ctx context.Context, session *models.Session, id string) (*ExpenseView, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTouchExpense(e, session.UserID) {
		return nil, models.ErrForbidden
	}

	view := &ExpenseView{
		Expense: e,
		Owed:    make(map[string]float64, len(e.Participants)),
		Net:     make(map[string]float64, len(e.Participants)),
	}
	for _, p := range e.Participants {
		view.Owed[p.ID] = calculator.Owed(e.Amount, p.Share)
		view.Net[p.ID] = calculator.NetPosition(e, p.ID)
		if p.ID == e.PaidBy {
			view.PaidBy = p.Name
		}
	}
	if e.GroupID != "" {
		if g, err := s.store.GetGroup(ctx, e.GroupID); err == nil {
			view.GroupName = g.Name
		}
	}
	return view, nil
}

// ClearExpenses deletes every expense the session user recorded.
func (s *Service) ClearExpenses(ctx context.Context, session *models.Session) (int, error) {
	if err := requireSession(session); err != nil {
		return 0, err
	}

	n, err := s.store.DeleteExpensesByOwner(ctx, session.UserID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Expenses cleared", "user_id", session.UserID, "count", n)
	if n > 0 {
		s.changed()
	}
	return n, nil
}

// validateExpense normalizes e in place. Nothing is persisted when it fails.
func (s *Service) validateExpense(ctx context.Context, session *models.Session, e *models.Expense) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return models.Invalid("title", models.ErrEmptyTitle)
	}
	if !models.ValidDate(e.Date) {
		return models.Invalid("date", models.ErrDateOutOfRange)
	}
	if e.SplitMode == "" {
		e.SplitMode = models.SplitEqual
	}

	split, err := calculator.CalculateSplit(e.Amount, e.PaidBy, e.SplitMode, e.Participants)
	if err != nil {
		return err
	}

	ids := make([]string, len(split.Participants))
	for i, p := range split.Participants {
		ids[i] = p.ID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	for i, p := range split.Participants {
		u, ok := users[p.ID]
		if !ok {
			return models.Invalid("participants", fmt.Errorf("%w: %s", models.ErrUnknownUser, p.ID))
		}
		split.Participants[i].Name = u.Label()
	}
	e.Participants = split.Participants

	if e.GroupID != "" {
		g, err := s.store.GetGroup(ctx, e.GroupID)
		if errors.Is(err, models.ErrNotFound) {
			return models.Invalid("groupId", models.ErrUnknownGroup)
		}
		if err != nil {
			return fmt.Errorf("failed to load group: %w", err)
		}
		if g.UserID != session.UserID && !g.HasMember(session.UserID) {
			return models.ErrForbidden
		}
	}
	return nil
}

// canTouchExpense reports whether userID recorded, paid for or participates in e.
func canTouchExpense(e *models.Expense, userID string) bool {
	return e.UserID == userID || e.Involves(userID)
}
