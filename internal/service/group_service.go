package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitit/internal/ledger"
)

const (
	GroupServiceName        = "splitit.v1.GroupService"
	CreateGroupProcedure    = "/" + GroupServiceName + "/CreateGroup"
	UpdateGroupProcedure    = "/" + GroupServiceName + "/UpdateGroup"
	DeleteGroupProcedure    = "/" + GroupServiceName + "/DeleteGroup"
	GetGroupProcedure       = "/" + GroupServiceName + "/GetGroup"
	ListGroupsProcedure     = "/" + GroupServiceName + "/ListGroups"
	GetGroupDetailProcedure = "/" + GroupServiceName + "/GetGroupDetail"
	AddFriendProcedure      = "/" + GroupServiceName + "/AddFriend"
	ListFriendsProcedure    = "/" + GroupServiceName + "/ListFriends"
)

// GroupService implements the Connect GroupService: groups and the friend list
// their members are drawn from.
type GroupService struct {
	ledger *ledger.Service
	logger *slog.Logger
}

// NewGroupService creates a new GroupService on top of the ledger.
func NewGroupService(ledgerSvc *ledger.Service, logger *slog.Logger) *GroupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupService{ledger: ledgerSvc, logger: logger}
}

// Handler returns the path prefix and handler serving the service.
func (s *GroupService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateGroupProcedure, unary(CreateGroupProcedure, s.CreateGroup, s.logger, opts...))
	mux.Handle(UpdateGroupProcedure, unary(UpdateGroupProcedure, s.UpdateGroup, s.logger, opts...))
	mux.Handle(DeleteGroupProcedure, unary(DeleteGroupProcedure, s.DeleteGroup, s.logger, opts...))
	mux.Handle(GetGroupProcedure, unary(GetGroupProcedure, s.GetGroup, s.logger, opts...))
	mux.Handle(ListGroupsProcedure, unary(ListGroupsProcedure, s.ListGroups, s.logger, opts...))
	mux.Handle(GetGroupDetailProcedure, unary(GetGroupDetailProcedure, s.GetGroupDetail, s.logger, opts...))
	mux.Handle(AddFriendProcedure, unary(AddFriendProcedure, s.AddFriend, s.logger, opts...))
	mux.Handle(ListFriendsProcedure, unary(ListFriendsProcedure, s.ListFriends, s.logger, opts...))
	return servicePath(GroupServiceName), mux
}

// CreateGroup creates a new group.
func (s *GroupService) CreateGroup(ctx context.Context, req *ledger.GroupInput) (*GroupResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.CreateGroup(ctx, session, *req)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{Group: g}, nil
}

// UpdateGroup renames a group or replaces its members.
func (s *GroupService) UpdateGroup(ctx context.Context, req *UpdateGroupRequest) (*GroupResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.UpdateGroup(ctx, session, req.ID, req.GroupUpdate)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{Group: g}, nil
}

// DeleteGroup deletes a group, keeping its expenses as personal expenses.
func (s *GroupService) DeleteGroup(ctx context.Context, req *IDRequest) (*DeleteGroupResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.ledger.DeleteGroup(ctx, session, req.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteGroupResponse{DetachedExpenses: n}, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *IDRequest) (*GroupResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.GetGroup(ctx, session, req.ID)
	if err != nil {
		return nil, err
	}
	return &GroupResponse{Group: g}, nil
}

// ListGroups retrieves the groups the caller owns or belongs to.
func (s *GroupService) ListGroups(ctx context.Context, _ *Empty) (*ListGroupsResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.ledger.ListGroups(ctx, session)
	if err != nil {
		return nil, err
	}
	return &ListGroupsResponse{Groups: groups}, nil
}

// GetGroupDetail returns the group's expenses, balances and settle-up plan.
func (s *GroupService) GetGroupDetail(ctx context.Context, req *IDRequest) (*ledger.GroupDetail, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.GroupDetail(ctx, session, req.ID)
}

// AddFriend adds the user with the given handle to the caller's friends.
func (s *GroupService) AddFriend(ctx context.Context, req *AddFriendRequest) (*FriendResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	f, err := s.ledger.AddFriend(ctx, session, req.Name)
	if err != nil {
		return nil, err
	}
	return &FriendResponse{Friend: f}, nil
}

// ListFriends returns the caller's friends with their balances.
func (s *GroupService) ListFriends(ctx context.Context, _ *Empty) (*ListFriendsResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	friends, err := s.ledger.ListFriends(ctx, session)
	if err != nil {
		return nil, err
	}
	return &ListFriendsResponse{Friends: friends}, nil
}
