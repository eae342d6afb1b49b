package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/splitit/internal/models"
)

const expenseColumns = `id, title, amount, paid_by, split_mode, date, group_id, notes, created_at, updated_at, synced, user_id`

// CreateExpense persists an expense and its participants.
func (s *SQLiteStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	if !models.ValidDate(e.Date) {
		return models.Invalid("date", models.ErrDateOutOfRange)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Title, e.Amount, e.PaidBy, string(e.SplitMode), toNanos(e.Date), nullString(e.GroupID),
		e.Notes, toNanos(e.CreatedAt), toNanos(e.UpdatedAt), boolToInt(e.Synced), e.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertParticipants(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its participants.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	expenses, err := s.queryExpenses(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, models.NotFound("expense", id)
	}
	return expenses[0], nil
}

// UpdateExpense replaces every field of an existing expense and its participants.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, e *models.Expense) error {
	if !models.ValidDate(e.Date) {
		return models.Invalid("date", models.ErrDateOutOfRange)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET title = ?, amount = ?, paid_by = ?, split_mode = ?, date = ?, group_id = ?,
		    notes = ?, updated_at = ?, synced = ?
		WHERE id = ?
	`,
		e.Title, e.Amount, e.PaidBy, string(e.SplitMode), toNanos(e.Date), nullString(e.GroupID),
		e.Notes, toNanos(e.UpdatedAt), boolToInt(e.Synced), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("expense", e.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_participants WHERE expense_id = ?", e.ID); err != nil {
		return fmt.Errorf("failed to delete old participants: %w", err)
	}
	if err := insertParticipants(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense. Participants cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("expense", id)
	}
	return nil
}

// ListExpensesByGroup returns the group's expenses, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY date DESC, created_at DESC, id", groupID)
}

// ListExpensesByPayer returns expenses paid by userID, newest first.
func (s *SQLiteStore) ListExpensesByPayer(ctx context.Context, userID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE paid_by = ? ORDER BY date DESC, created_at DESC, id", userID)
}

// ListExpensesByOwner returns expenses recorded by userID, newest first.
func (s *SQLiteStore) ListExpensesByOwner(ctx context.Context, userID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, created_at DESC, id", userID)
}

// ListExpensesForUser returns expenses userID recorded, paid or participates in.
func (s *SQLiteStore) ListExpensesForUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE user_id = ? OR paid_by = ?
		   OR id IN (SELECT expense_id FROM expense_participants WHERE participant_id = ?)
		ORDER BY date DESC, created_at DESC, id
	`, userID, userID, userID)
}

// ListExpensesByDate returns expenses dated in [from, to), oldest first.
func (s *SQLiteStore) ListExpensesByDate(ctx context.Context, from, to time.Time) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE date >= ? AND date < ? ORDER BY date, created_at, id",
		toNanos(from), toNanos(to))
}

// ListUnsyncedExpenses returns dirty expenses, oldest change first.
func (s *SQLiteStore) ListUnsyncedExpenses(ctx context.Context, limit int) ([]*models.Expense, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE synced = 0 ORDER BY updated_at, id LIMIT ?", limit)
}

// MarkExpenseSynced flips synced only when updated_at still matches.
func (s *SQLiteStore) MarkExpenseSynced(ctx context.Context, id string, updatedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE expenses SET synced = 1 WHERE id = ? AND updated_at = ? AND synced = 0",
		id, toNanos(updatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark expense synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark expense synced: %w", err)
	}
	return n == 1, nil
}

// DeleteExpensesByOwner removes every expense recorded by userID.
func (s *SQLiteStore) DeleteExpensesByOwner(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expenses: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func insertParticipants(ctx context.Context, q querier, e *models.Expense) error {
	for i, p := range e.Participants {
		_, err := q.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, participant_id, position, name, share) VALUES (?, ?, ?, ?, ?)",
			e.ID, p.ID, i, p.Name, p.Share,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// queryExpenses runs an expenses query and attaches participants.
func (s *SQLiteStore) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}

	var expenses []*models.Expense
	for rows.Next() {
		var (
			e                          models.Expense
			mode                       string
			groupID                    sql.NullString
			date, createdAt, updatedAt int64
			synced                     int
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount, &e.PaidBy, &mode, &date, &groupID,
			&e.Notes, &createdAt, &updatedAt, &synced, &e.UserID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.SplitMode = models.SplitMode(mode)
		e.Date = fromNanos(date)
		e.GroupID = groupID.String
		e.CreatedAt = fromNanos(createdAt)
		e.UpdatedAt = fromNanos(updatedAt)
		e.Synced = synced == 1
		expenses = append(expenses, &e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	if err := s.loadParticipants(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, expenses []*models.Expense) error {
	byID := make(map[string]*models.Expense, len(expenses))
	ids := make([]string, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	return inChunks(ids, func(chunk []string) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT p.expense_id, p.participant_id, COALESCE(NULLIF(u.display_name, ''), u.name, p.name), p.share
			FROM expense_participants p
			LEFT JOIN users u ON u.id = p.participant_id
			WHERE p.expense_id IN (`+placeholders(len(chunk))+`)
			ORDER BY p.expense_id, p.position
		`, stringArgs(chunk)...)
		if err != nil {
			return fmt.Errorf("failed to get participants: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var expenseID string
			var p models.Participant
			if err := rows.Scan(&expenseID, &p.ID, &p.Name, &p.Share); err != nil {
				return fmt.Errorf("failed to scan participant: %w", err)
			}
			e := byID[expenseID]
			e.Participants = append(e.Participants, p)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate participants: %w", err)
		}
		return nil
	})
}
