package models

import (
	"fmt"
	"time"
)

// Expense dates must fall in [MinExpenseDate, MaxExpenseDate). The store keeps
// timestamps as unix nanoseconds, which cannot represent years outside 1678-2262.
var (
	MinExpenseDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxExpenseDate = time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// ValidDate reports whether t can be stored as an expense date.
func ValidDate(t time.Time) bool {
	return !t.Before(MinExpenseDate) && t.Before(MaxExpenseDate)
}

// SplitMode selects how participant shares are derived.
type SplitMode string

const (
	// SplitEqual gives every participant 100/n percent.
	SplitEqual SplitMode = "equal"
	// SplitCustom keeps the caller's raw shares and normalizes them to sum to 100.
	SplitCustom SplitMode = "custom"
)

// ParseSplitMode parses a split mode, defaulting the empty string to SplitEqual.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case "", SplitEqual:
		return SplitEqual, nil
	case SplitCustom:
		return SplitCustom, nil
	default:
		return "", &ValidationError{Field: "splitMode", Err: fmt.Errorf("%w: %q", ErrInvalidSplitMode, s)}
	}
}

// Expense represents an amount paid by one user and split among participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	Title string `json:"title"`

	// Amount is the total paid. Always positive.
	Amount float64 `json:"amount"`

	// PaidBy is the user ID of the payer. The payer is always one of the participants.
	PaidBy string `json:"paidBy"`

	// Participants hold normalized shares summing to 100.
	Participants []Participant `json:"participants"`

	SplitMode SplitMode `json:"splitMode"`

	// Date is when the expense happened, as opposed to when it was recorded.
	Date time.Time `json:"date"`

	// GroupID is empty for a personal expense.
	GroupID string `json:"groupId,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Synced    bool      `json:"synced"`

	// UserID is the user who recorded the expense, not necessarily the payer.
	UserID string `json:"userId"`
}

// Participant is one person's share of an expense.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Share is a percentage (0-100) of the expense amount.
	Share float64 `json:"share"`
}

// IsPersonal reports whether the expense is not attached to any group.
func (e *Expense) IsPersonal() bool {
	return e.GroupID == ""
}

// Detach converts the expense into a personal expense.
func (e *Expense) Detach() {
	e.GroupID = ""
}

// Participant returns the participant with the given user ID.
func (e *Expense) Participant(userID string) (Participant, bool) {
	for _, p := range e.Participants {
		if p.ID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Involves reports whether userID paid for or participates in the expense.
func (e *Expense) Involves(userID string) bool {
	if e.PaidBy == userID {
		return true
	}
	_, ok := e.Participant(userID)
	return ok
}

// Snapshot is a read-only export of the ledger.
type Snapshot struct {
	Expenses   []*Expense `json:"expenses"`
	Groups     []*Group   `json:"groups"`
	Users      []User     `json:"users"`
	ExportedAt time.Time  `json:"exportedAt"`
}
