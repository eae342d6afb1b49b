package service

import (
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/internal/syncer"
)

// Requests and responses of the JSON API. Empty is used where a call takes or
// returns nothing.

type Empty struct{}

type RegisterRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	// Identifier is a handle or an email address.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type UserResponse struct {
	User models.User `json:"user"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type UpdateExpenseRequest struct {
	ID string `json:"id"`
	ledger.ExpenseUpdate
}

type ExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
}

type ListActivityRequest struct {
	Filter string `json:"filter,omitempty"`
}

type ListActivityResponse struct {
	Items []ledger.ActivityItem `json:"items"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type UpdateGroupRequest struct {
	ID string `json:"id"`
	ledger.GroupUpdate
}

type GroupResponse struct {
	Group *models.Group `json:"group"`
}

type ListGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

type DeleteGroupResponse struct {
	DetachedExpenses int `json:"detachedExpenses"`
}

type AddFriendRequest struct {
	Name string `json:"name"`
}

type FriendResponse struct {
	Friend *models.Friend `json:"friend"`
}

type ListFriendsResponse struct {
	Friends []ledger.FriendView `json:"friends"`
}

type DashboardRequest struct {
	Recent int `json:"recent,omitempty"`
}

type SyncResponse struct {
	Report *syncer.Report `json:"report"`
}
