package models

import "time"

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the user's handle. It is unique across all users, compared
	// case-insensitively, and used to discover friends.
	Name string `json:"name"`

	// DisplayName is the optional human readable name.
	DisplayName string `json:"displayName,omitempty"`

	// Email is optional but unique when present.
	Email string `json:"email,omitempty"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`

	// AuthToken is the token issued on the latest login. Empty when logged out.
	AuthToken string `json:"-"`

	// LastLogin is zero until the first successful login.
	LastLogin time.Time `json:"lastLogin,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Label returns the display name, falling back to the handle.
func (u *User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// Public returns a copy of the user with credentials stripped.
func (u User) Public() User {
	u.PasswordHash = ""
	u.AuthToken = ""
	return u
}

// Friend is a directed edge: UserID knows the user whose handle is Name.
type Friend struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// FriendUserID is the ID of the user behind Name, resolved when the edge was created.
	FriendUserID string `json:"friendUserId"`

	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// UserID is the user who added the friend.
	UserID string `json:"userId"`
}

// Session identifies the authenticated caller of a ledger operation.
type Session struct {
	UserID string
	Name   string
	Token  string
}
