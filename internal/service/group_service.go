package service

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/mail"
	"github.com/owaso30/ManualApp/internal/metrics"
	"github.com/owaso30/ManualApp/internal/middleware"
)

// GroupStore is the persistence surface the group service depends on.
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*data.Group, error)
	GetByCode(ctx context.Context, code string) (*data.Group, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	OwnsAnyGroup(ctx context.Context, userID string) (bool, error)
	CreateWithOwner(ctx context.Context, group *data.Group, ownerID string) (int64, error)
	MembershipByUser(ctx context.Context, userID string) (*data.GroupMembership, error)
	Membership(ctx context.Context, groupID int64, userID string) (*data.GroupMembership, error)
	Members(ctx context.Context, groupID int64) ([]*data.GroupMembership, error)
	RemoveMembership(ctx context.Context, groupID int64, userID string) error
	UpdateMembershipPermission(ctx context.Context, groupID int64, userID string, permission data.GroupPermission) error
	PendingRequestExists(ctx context.Context, groupID int64, requesterID string) (bool, error)
	InsertJoinRequest(ctx context.Context, req *data.GroupJoinRequest) (int64, error)
	JoinRequestByID(ctx context.Context, id int64) (*data.GroupJoinRequest, error)
	PendingRequestsForOwner(ctx context.Context, ownerID string) ([]*data.GroupJoinRequest, error)
	FinalizeJoinRequest(ctx context.Context, requestID int64, processorID string, status data.JoinRequestStatus) error
	ApproveJoinRequest(ctx context.Context, requestID int64, processorID string, permission data.GroupPermission) error
	DeleteCascade(ctx context.Context, groupID int64) error
}

const groupCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GroupService implements group creation, the join-request lifecycle and
// membership administration. Operations report success as a bool; the
// detailed cause lands in the log, never in the response.
type GroupService struct {
	groups GroupStore
	users  UserStore
	mailer mail.Sender
	log    logger.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(groups GroupStore, users UserStore, mailer mail.Sender, log logger.Logger) *GroupService {
	return &GroupService{groups: groups, users: users, mailer: mailer, log: log}
}

// CreateGroup creates a group with the actor as owner and sole member at
// full-edit tier. A user who already belongs to or owns a group cannot
// create another.
func (s *GroupService) CreateGroup(ctx context.Context, name string, description *string) (*data.Group, bool) {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return nil, false
	}
	if m, err := s.groups.MembershipByUser(ctx, actor.UserID); err != nil || m != nil {
		if err != nil {
			s.log.Error(err, "membership lookup failed during group creation")
		}
		return nil, false
	}
	if owns, err := s.groups.OwnsAnyGroup(ctx, actor.UserID); err != nil || owns {
		if err != nil {
			s.log.Error(err, "ownership lookup failed during group creation")
		}
		return nil, false
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		s.log.Error(err, "failed to generate group code")
		return nil, false
	}
	group := &data.Group{Name: name, Description: description, Code: code, OwnerID: &actor.UserID}
	id, err := s.groups.CreateWithOwner(ctx, group, actor.UserID)
	if err != nil {
		s.log.Error(err, "failed to create group")
		return nil, false
	}
	group.ID = id
	InvalidateModeCache(ctx)
	return group, true
}

// generateCode produces a unique join code of the form "G-" followed by
// twelve lowercase alphanumerics.
func (s *GroupService) generateCode(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for i, b := range buf {
			buf[i] = groupCodeAlphabet[int(b)%len(groupCodeAlphabet)]
		}
		code := "G-" + string(buf)
		exists, err := s.groups.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// RequestToJoin files a join request against the group identified by its
// code. It fails for unknown codes, existing members and duplicate
// pending requests. The group owner is notified by mail, best effort.
func (s *GroupService) RequestToJoin(ctx context.Context, code string, message *string) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	group, err := s.groups.GetByCode(ctx, code)
	if err != nil || group == nil {
		if err != nil {
			s.log.Error(err, "group lookup by code failed")
		}
		return false
	}
	if m, err := s.groups.Membership(ctx, group.ID, actor.UserID); err != nil || m != nil {
		return false
	}
	if exists, err := s.groups.PendingRequestExists(ctx, group.ID, actor.UserID); err != nil || exists {
		return false
	}
	req := &data.GroupJoinRequest{GroupID: group.ID, RequesterID: actor.UserID, Message: message, Status: data.JoinRequestPending}
	if _, err := s.groups.InsertJoinRequest(ctx, req); err != nil {
		s.log.Error(err, "failed to insert join request")
		return false
	}
	s.notifyOwner(ctx, group, actor.UserID)
	return true
}

func (s *GroupService) notifyOwner(ctx context.Context, group *data.Group, requesterID string) {
	if group.OwnerID == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, *group.OwnerID)
	if err != nil || owner == nil {
		return
	}
	requesterName := requesterID
	if requester, err := s.users.GetByID(ctx, requesterID); err == nil && requester != nil {
		requesterName = requester.DisplayName
	}
	if err := s.mailer.SendJoinRequestNotification(ctx, owner.Email, group.Name, requesterName); err != nil {
		s.log.Error(err, "failed to send join request notification")
	}
}

// PendingRequests lists the pending requests against groups the actor
// owns. Errors yield an empty list.
func (s *GroupService) PendingRequests(ctx context.Context) []*data.GroupJoinRequest {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return nil
	}
	reqs, err := s.groups.PendingRequestsForOwner(ctx, actor.UserID)
	if err != nil {
		s.log.Error(err, "failed to list pending join requests")
		return nil
	}
	return reqs
}

// ProcessJoinRequest lets the owning group's owner approve or reject a
// pending request. An approval is re-validated at processing time: if the
// requester joined or created another group since requesting, the request
// is auto-rejected with a conflict status distinguishable from an
// explicit rejection.
func (s *GroupService) ProcessJoinRequest(ctx context.Context, requestID int64, approve bool, permission *data.GroupPermission) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	req, err := s.groups.JoinRequestByID(ctx, requestID)
	if err != nil || req == nil || req.Status.Terminal() {
		return false
	}
	group, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil || group == nil || !group.IsOwnedBy(actor.UserID) {
		return false
	}

	if !approve {
		if err := s.groups.FinalizeJoinRequest(ctx, requestID, actor.UserID, data.JoinRequestRejected); err != nil {
			s.log.Error(err, "failed to reject join request")
			return false
		}
		metrics.JoinRequestOutcomes.WithLabelValues(data.JoinRequestRejected.String()).Inc()
		s.notifyRequester(ctx, req.RequesterID, group.Name, false)
		return true
	}

	if s.requesterConflicted(ctx, req.RequesterID) {
		if err := s.groups.FinalizeJoinRequest(ctx, requestID, actor.UserID, data.JoinRequestRejectedConflict); err != nil {
			s.log.Error(err, "failed to auto-reject conflicting join request")
			return false
		}
		metrics.JoinRequestOutcomes.WithLabelValues(data.JoinRequestRejectedConflict.String()).Inc()
		s.notifyRequester(ctx, req.RequesterID, group.Name, false)
		return false
	}

	perm := data.PermissionViewOnly
	if permission != nil && permission.Valid() {
		perm = *permission
	}
	if err := s.groups.ApproveJoinRequest(ctx, requestID, actor.UserID, perm); err != nil {
		s.log.Error(err, "failed to approve join request")
		return false
	}
	metrics.JoinRequestOutcomes.WithLabelValues(data.JoinRequestApproved.String()).Inc()
	s.notifyRequester(ctx, req.RequesterID, group.Name, true)
	return true
}

// requesterConflicted reports whether the requester already holds a
// membership or owns a group. Lookup errors count as a conflict so a
// failed check can never admit a second membership.
func (s *GroupService) requesterConflicted(ctx context.Context, requesterID string) bool {
	m, err := s.groups.MembershipByUser(ctx, requesterID)
	if err != nil || m != nil {
		return true
	}
	owns, err := s.groups.OwnsAnyGroup(ctx, requesterID)
	return err != nil || owns
}

func (s *GroupService) notifyRequester(ctx context.Context, requesterID, groupName string, approved bool) {
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil || requester == nil {
		return
	}
	if err := s.mailer.SendJoinProcessedNotification(ctx, requester.Email, groupName, approved); err != nil {
		s.log.Error(err, "failed to send join processed notification")
	}
}

// Get returns a group the actor may see: members, the owner and admins.
func (s *GroupService) Get(ctx context.Context, groupID int64) (*data.Group, bool) {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return nil, false
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil || group == nil {
		return nil, false
	}
	if actor.IsAdmin || group.IsOwnedBy(actor.UserID) {
		return group, true
	}
	m, err := s.groups.Membership(ctx, groupID, actor.UserID)
	if err != nil || m == nil {
		return nil, false
	}
	return group, true
}

// CurrentGroup returns the group the actor belongs to, if any.
func (s *GroupService) CurrentGroup(ctx context.Context) (*data.Group, bool) {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return nil, false
	}
	m, err := s.groups.MembershipByUser(ctx, actor.UserID)
	if err != nil || m == nil {
		return nil, false
	}
	group, err := s.groups.GetByID(ctx, m.GroupID)
	if err != nil || group == nil {
		return nil, false
	}
	return group, true
}

// Members lists a group's memberships with display names. Only the
// owner, members and admins may list.
func (s *GroupService) Members(ctx context.Context, groupID int64) []*data.GroupMembership {
	if _, ok := s.Get(ctx, groupID); !ok {
		return nil
	}
	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		s.log.Error(err, "failed to list group members")
		return nil
	}
	return members
}

// RemoveMember lets the group owner remove a membership.
func (s *GroupService) RemoveMember(ctx context.Context, groupID int64, userID string) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil || group == nil || !group.IsOwnedBy(actor.UserID) {
		return false
	}
	if err := s.groups.RemoveMembership(ctx, groupID, userID); err != nil {
		s.log.Error(err, "failed to remove group member")
		return false
	}
	InvalidateModeCache(ctx)
	return true
}

// UpdateMemberPermission lets the group owner change a member's tier.
func (s *GroupService) UpdateMemberPermission(ctx context.Context, groupID int64, userID string, permission data.GroupPermission) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated || !permission.Valid() {
		return false
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil || group == nil || !group.IsOwnedBy(actor.UserID) {
		return false
	}
	if err := s.groups.UpdateMembershipPermission(ctx, groupID, userID, permission); err != nil {
		s.log.Error(err, "failed to update member permission")
		return false
	}
	InvalidateModeCache(ctx)
	return true
}

// LeaveGroup removes the actor's own membership. The owner cannot leave;
// they must delete or hand off the group instead.
func (s *GroupService) LeaveGroup(ctx context.Context) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	m, err := s.groups.MembershipByUser(ctx, actor.UserID)
	if err != nil || m == nil {
		return false
	}
	group, err := s.groups.GetByID(ctx, m.GroupID)
	if err != nil || group == nil || group.IsOwnedBy(actor.UserID) {
		return false
	}
	if err := s.groups.RemoveMembership(ctx, m.GroupID, actor.UserID); err != nil {
		s.log.Error(err, "failed to leave group")
		return false
	}
	InvalidateModeCache(ctx)
	return true
}

// DeleteGroup deletes a group the actor owns, cascading memberships and
// open join requests. Content owned by the group scope is untouched.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID int64) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil || group == nil || !group.IsOwnedBy(actor.UserID) {
		return false
	}
	if err := s.groups.DeleteCascade(ctx, groupID); err != nil {
		s.log.Error(err, fmt.Sprintf("failed to delete group %d", groupID))
		return false
	}
	InvalidateModeCache(ctx)
	return true
}
