package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitit/internal/models"
)

// CreateFriend inserts a directed friend edge.
func (s *SQLiteStore) CreateFriend(ctx context.Context, friend *models.Friend) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO friends (id, user_id, name, friend_user_id, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		friend.ID,
		friend.UserID,
		friend.Name,
		friend.FriendUserID,
		friend.Email,
		toNanos(friend.CreatedAt),
	)
	if isUniqueViolation(err, "friends.") {
		return models.Invalid("name", models.ErrDuplicateFriend)
	}
	if err != nil {
		return fmt.Errorf("failed to create friend: %w", err)
	}
	return nil
}

// ListFriendsByUser returns userID's friends ordered by handle.
func (s *SQLiteStore) ListFriendsByUser(ctx context.Context, userID string) ([]*models.Friend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, friend_user_id, email, created_at
		FROM friends
		WHERE user_id = ?
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.Friend
	for rows.Next() {
		f, err := scanFriend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return friends, nil
}

// GetFriendByName finds userID's edge to the given handle, ignoring case.
func (s *SQLiteStore) GetFriendByName(ctx context.Context, userID, name string) (*models.Friend, error) {
	f, err := scanFriend(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, friend_user_id, email, created_at
		FROM friends
		WHERE user_id = ? AND name = ?
	`, userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("friend", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}
	return f, nil
}

func scanFriend(row rowScanner) (*models.Friend, error) {
	var (
		f         models.Friend
		createdAt int64
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.FriendUserID, &f.Email, &createdAt); err != nil {
		return nil, err
	}
	f.CreatedAt = fromNanos(createdAt)
	return &f, nil
}
