package models

import "time"

// Group represents a reusable set of members that expenses can be attached to.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string `json:"name"`

	// Members are persisted as user IDs only. Member names are resolved from the
	// user records every time the group is read, so a renamed user never goes stale.
	Members []Member `json:"members"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Synced    bool      `json:"synced"`

	// UserID is the user who created and owns the group.
	UserID string `json:"userId"`
}

// Member is one member of a group.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MemberIDs returns the IDs of all members in order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// HasMember reports whether userID is a member of the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
