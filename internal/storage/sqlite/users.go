package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitit/internal/models"
)

const userColumns = `id, name, display_name, email, password_hash, auth_token, last_login, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.DisplayName,
		nullString(user.Email),
		user.PasswordHash,
		nullString(user.AuthToken),
		toNanos(user.LastLogin),
		toNanos(user.CreatedAt),
		toNanos(user.UpdatedAt),
	)
	if err != nil {
		return wrapUserConstraint("failed to create user", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByName retrieves a user by handle, ignoring case.
func (s *SQLiteStore) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return s.getUser(ctx, "name", name)
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, models.NotFound("user", email)
	}
	return s.getUser(ctx, "email", email)
}

// GetUserByAuthToken retrieves the user currently holding token.
func (s *SQLiteStore) GetUserByAuthToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.NotFound("user", "")
	}
	return s.getUser(ctx, "auth_token", token)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("user", value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Returns a map of user ID to User object.
// Users that don't exist are omitted from the result.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	err := inChunks(ids, func(chunk []string) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(len(chunk)) + `)`
		rows, err := s.db.QueryContext(ctx, query, stringArgs(chunk)...)
		if err != nil {
			return fmt.Errorf("failed to get users by IDs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			user, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			users[user.ID] = user
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser overwrites every mutable column of an existing user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, display_name = ?, email = ?, password_hash = ?, auth_token = ?,
		    last_login = ?, updated_at = ?
		WHERE id = ?
	`,
		user.Name,
		user.DisplayName,
		nullString(user.Email),
		user.PasswordHash,
		nullString(user.AuthToken),
		toNanos(user.LastLogin),
		toNanos(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return wrapUserConstraint("failed to update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("user", user.ID)
	}
	return nil
}

// ListUsers returns every user ordered by handle.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user                           models.User
		email, token                   sql.NullString
		lastLogin, createdAt, updateAt int64
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.DisplayName,
		&email,
		&user.PasswordHash,
		&token,
		&lastLogin,
		&createdAt,
		&updateAt,
	); err != nil {
		return nil, err
	}
	user.Email = email.String
	user.AuthToken = token.String
	user.LastLogin = fromNanos(lastLogin)
	user.CreatedAt = fromNanos(createdAt)
	user.UpdatedAt = fromNanos(updateAt)
	return &user, nil
}

func wrapUserConstraint(msg string, err error) error {
	switch {
	case isUniqueViolation(err, "users.name"):
		return models.Invalid("name", models.ErrHandleTaken)
	case isUniqueViolation(err, "users.email"):
		return models.Invalid("email", models.ErrEmailTaken)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
