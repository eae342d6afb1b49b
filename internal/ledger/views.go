package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mmynk/splitit/internal/calculator"
	"github.com/mmynk/splitit/internal/models"
)

// ActivityFilter narrows the activity feed.
type ActivityFilter string

const (
	ActivityAll      ActivityFilter = "all"
	ActivityPersonal ActivityFilter = "personal"
	ActivityGroup    ActivityFilter = "group"
)

// ParseActivityFilter defaults the empty string to ActivityAll.
func ParseActivityFilter(s string) (ActivityFilter, error) {
	switch ActivityFilter(s) {
	case "", ActivityAll:
		return ActivityAll, nil
	case ActivityPersonal, ActivityGroup:
		return ActivityFilter(s), nil
	default:
		return "", models.Invalid("filter", fmt.Errorf("unknown activity filter %q", s))
	}
}

func (f ActivityFilter) match(e *models.Expense) bool {
	switch f {
	case ActivityPersonal:
		return e.IsPersonal()
	case ActivityGroup:
		return !e.IsPersonal()
	default:
		return true
	}
}

// ActivityItem is one expense as seen by the session user.
type ActivityItem struct {
	Expense   *models.Expense `json:"expense"`
	UserShare float64         `json:"userShare"`
	Net       float64         `json:"net"`
	Summary   string          `json:"summary"`
}

// CounterpartyBalance is the running balance between the session user and one other user.
// A positive Amount means the other user owes the session user.
type CounterpartyBalance struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Summary string  `json:"summary"`
}

// Dashboard summarizes the session user's position.
type Dashboard struct {
	TotalBalance float64               `json:"totalBalance"`
	TotalOwed    float64               `json:"totalOwed"`
	TotalOwing   float64               `json:"totalOwing"`
	Summary      string                `json:"summary"`
	Balances     []CounterpartyBalance `json:"balances"`
	Recent       []ActivityItem        `json:"recent"`
}

// DefaultRecent is how many expenses the dashboard shows when not told otherwise.
const DefaultRecent = 5

// ListActivity returns the expenses the session user recorded, paid or takes part
// in, newest first.
func (s *Service) ListActivity(ctx context.Context, session *models.Session, filter ActivityFilter) ([]ActivityItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesForUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	items := make([]ActivityItem, 0, len(expenses))
	for _, e := range expenses {
		if !filter.match(e) {
			continue
		}
		items = append(items, s.activityItem(e, session.UserID))
	}
	return items, nil
}

// Dashboard returns the total balance, the per-counterparty balances ordered by
// size and the most recent expenses.
func (s *Service) Dashboard(ctx context.Context, session *models.Session, recent int) (*Dashboard, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if recent <= 0 {
		recent = DefaultRecent
	}

	expenses, err := s.store.ListExpensesForUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	balances, err := s.counterparties(ctx, calculator.Balances(expenses, session.UserID))
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalBalance: s.formatter.Round(calculator.TotalBalance(expenses, session.UserID)),
		Balances:     make([]CounterpartyBalance, 0, len(balances)),
	}
	for _, b := range balances {
		switch {
		case b.Amount > 0:
			d.TotalOwed += b.Amount
		case b.Amount < 0:
			d.TotalOwing -= b.Amount
		}
		if !s.formatter.IsZero(b.Amount) {
			d.Balances = append(d.Balances, b)
		}
	}
	d.TotalOwed = s.formatter.Round(d.TotalOwed)
	d.TotalOwing = s.formatter.Round(d.TotalOwing)
	d.Summary = s.formatter.Describe(d.TotalBalance)

	for _, e := range expenses[:min(recent, len(expenses))] {
		d.Recent = append(d.Recent, s.activityItem(e, session.UserID))
	}
	return d, nil
}

func (s *Service) activityItem(e *models.Expense, userID string) ActivityItem {
	net := calculator.NetPosition(e, userID)
	return ActivityItem{
		Expense:   e,
		UserShare: s.formatter.Round(calculator.UserShare(e, userID)),
		Net:       s.formatter.Round(net),
		Summary:   s.formatter.Describe(net),
	}
}

// counterparties resolves names for a balance map and orders it by absolute
// amount, largest first, then by user ID.
func (s *Service) counterparties(ctx context.Context, balances map[string]float64) ([]CounterpartyBalance, error) {
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	out := make([]CounterpartyBalance, 0, len(balances))
	for id, amount := range balances {
		name := id
		if u, ok := users[id]; ok {
			name = u.Label()
		}
		amount = s.formatter.Round(amount)
		out = append(out, CounterpartyBalance{
			UserID:  id,
			Name:    name,
			Amount:  amount,
			Summary: s.formatter.Describe(amount),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Amount), math.Abs(out[j].Amount)
		if ai != aj {
			return ai > aj
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
