package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/ledger/internal/ledger"
)

// GroupService implements ledger.v1.GroupService.
type GroupService struct {
	scoped
}

// NewGroupService creates a GroupService.
func NewGroupService(svc *ledger.Service) *GroupService {
	return &GroupService{scoped{ledger: svc}}
}

// Handler returns the service's path prefix and HTTP handler.
func (s *GroupService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	r := newRoute(opts)
	handle(r, GroupServiceCreateGroupProcedure, s.CreateGroup)
	handle(r, GroupServiceGetGroupProcedure, s.GetGroup)
	handle(r, GroupServiceListGroupsProcedure, s.ListGroups)
	handle(r, GroupServiceUpdateGroupProcedure, s.UpdateGroup)
	handle(r, GroupServiceDeleteGroupProcedure, s.DeleteGroup)
	handle(r, GroupServiceSyncGroupMembersProcedure, s.SyncGroupMembers)
	return "/" + GroupServiceName + "/", r.mux
}

func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.CreateGroup(ctx, scope, *req.Msg)
	return respond(&GroupResponse{Group: g}, err)
}

func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.GetGroup(ctx, scope, req.Msg.ID)
	return respond(&GroupResponse{Group: g}, err)
}

func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.ledger.ListGroups(ctx, scope, req.Msg.IncludeArchived)
	return respond(&ListGroupsResponse{Groups: groups}, err)
}

// UpdateGroup also reconciles membership when participantIds is present.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[GroupResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.UpdateGroup(ctx, scope, req.Msg.ID, req.Msg.GroupPatch)
	return respond(&GroupResponse{Group: g}, err)
}

func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteResponse], error) {
	if err := requireID("id", req.Msg.ID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	return respond(&DeleteResponse{}, s.ledger.DeleteGroup(ctx, scope, req.Msg.ID))
}

// SyncGroupMembers makes participantIds the group's active roster.
func (s *GroupService) SyncGroupMembers(ctx context.Context, req *connect.Request[SyncGroupMembersRequest]) (*connect.Response[GroupResponse], error) {
	if err := requireID("groupId", req.Msg.GroupID); err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.ledger.SyncGroupMembers(ctx, scope, req.Msg.GroupID, req.Msg.ParticipantIDs)
	return respond(&GroupResponse{Group: g}, err)
}
