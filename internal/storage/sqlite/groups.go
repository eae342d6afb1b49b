package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/splitit/internal/models"
)

const groupColumns = `id, name, user_id, created_at, updated_at, synced`

// CreateGroup creates a new group with its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		group.ID, group.Name, group.UserID, toNanos(group.CreatedAt), toNanos(group.UpdatedAt), boolToInt(group.Synced),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID with member names resolved from users.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	groups, err := s.queryGroups(ctx, "SELECT "+groupColumns+" FROM groups WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, models.NotFound("group", id)
	}
	return groups[0], nil
}

// UpdateGroup replaces the group's name, members and sync state.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE groups SET name = ?, updated_at = ?, synced = ? WHERE id = ?",
		group.Name, toNanos(group.UpdatedAt), boolToInt(group.Synced), group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("group", group.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to delete old members: %w", err)
	}
	if err := insertMembers(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListGroupsByOwner returns groups created by userID, newest first.
func (s *SQLiteStore) ListGroupsByOwner(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.queryGroups(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE user_id = ? ORDER BY created_at DESC, id", userID)
}

// ListGroupsForUser returns groups userID owns or belongs to, newest first.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.queryGroups(ctx, `
		SELECT `+groupColumns+` FROM groups
		WHERE user_id = ? OR id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		ORDER BY created_at DESC, id
	`, userID, userID)
}

// ListGroupsByName returns groups with exactly this name.
func (s *SQLiteStore) ListGroupsByName(ctx context.Context, name string) ([]*models.Group, error) {
	return s.queryGroups(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE name = ? ORDER BY created_at, id", name)
}

// ListUnsyncedGroups returns dirty groups, oldest change first.
func (s *SQLiteStore) ListUnsyncedGroups(ctx context.Context, limit int) ([]*models.Group, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryGroups(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE synced = 0 ORDER BY updated_at, id LIMIT ?", limit)
}

// MarkGroupSynced flips synced only when updated_at still matches.
func (s *SQLiteStore) MarkGroupSynced(ctx context.Context, id string, updatedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET synced = 1 WHERE id = ? AND updated_at = ? AND synced = 0",
		id, toNanos(updatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark group synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark group synced: %w", err)
	}
	return n == 1, nil
}

// DetachAndDeleteGroup turns the group's expenses into personal expenses and deletes
// the group in one transaction.
func (s *SQLiteStore) DetachAndDeleteGroup(ctx context.Context, groupID string, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.NotFound("group", groupID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get group: %w", err)
	}

	// updated_at must move forward even when the clock has not.
	res, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET group_id = NULL, synced = 0, updated_at = MAX(?, updated_at + 1)
		WHERE group_id = ?
	`, toNanos(now), groupID)
	if err != nil {
		return 0, &models.IntegrityError{Op: "delete group", Err: fmt.Errorf("detach expenses: %w", err)}
	}
	detached, _ := res.RowsAffected()

	if s.afterDetach != nil {
		if err := s.afterDetach(); err != nil {
			return 0, &models.IntegrityError{Op: "delete group", Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID); err != nil {
		return 0, &models.IntegrityError{Op: "delete group", Err: fmt.Errorf("delete group: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return 0, &models.IntegrityError{Op: "delete group", Err: fmt.Errorf("commit: %w", err)}
	}
	return int(detached), nil
}

func insertMembers(ctx context.Context, q querier, group *models.Group) error {
	for i, m := range group.Members {
		_, err := q.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)",
			group.ID, m.ID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

// queryGroups runs a groups query and attaches members. Rows are fully read
// before members are loaded since the store holds a single connection.
func (s *SQLiteStore) queryGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		var (
			g                    models.Group
			createdAt, updatedAt int64
			synced               int
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.UserID, &createdAt, &updatedAt, &synced); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.CreatedAt = fromNanos(createdAt)
		g.UpdatedAt = fromNanos(updatedAt)
		g.Synced = synced == 1
		g.Members = []models.Member{}
		groups = append(groups, &g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	if err := s.loadMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, groups []*models.Group) error {
	byID := make(map[string]*models.Group, len(groups))
	ids := make([]string, len(groups))
	for i, g := range groups {
		byID[g.ID] = g
		ids[i] = g.ID
	}

	return inChunks(ids, func(chunk []string) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT m.group_id, m.user_id, COALESCE(NULLIF(u.display_name, ''), u.name, '')
			FROM group_members m
			LEFT JOIN users u ON u.id = m.user_id
			WHERE m.group_id IN (`+placeholders(len(chunk))+`)
			ORDER BY m.group_id, m.position
		`, stringArgs(chunk)...)
		if err != nil {
			return fmt.Errorf("failed to get group members: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var groupID string
			var m models.Member
			if err := rows.Scan(&groupID, &m.ID, &m.Name); err != nil {
				return fmt.Errorf("failed to scan member: %w", err)
			}
			g := byID[groupID]
			g.Members = append(g.Members, m)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate members: %w", err)
		}
		return nil
	})
}
