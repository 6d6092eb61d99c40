package service

import (
	"context"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/logger"
	"github.com/owaso30/ManualApp/internal/metrics"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/scope"
)

// MembershipStore looks up a single membership row.
type MembershipStore interface {
	Membership(ctx context.Context, groupID int64, userID string) (*data.GroupMembership, error)
}

// AccessService decides whether the current actor may act on a resource
// owned by a given scope. All decisions fail closed: lookup errors deny.
type AccessService struct {
	mode        *ModeService
	memberships MembershipStore
	log         logger.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(mode *ModeService, memberships MembershipStore, log logger.Logger) *AccessService {
	return &AccessService{mode: mode, memberships: memberships, log: log}
}

// Authorize evaluates scope-based access to a resource owned by the given
// scope. Administrators always pass. Otherwise the actor passes when their
// resolved scope equals the resource's scope, or, in group mode, when they
// hold at least the required tier in the resource's owning group.
func (s *AccessService) Authorize(ctx context.Context, resource scope.ID, required data.GroupPermission) bool {
	allowed := s.authorize(ctx, resource, required)
	metrics.RecordDecision("scope", allowed)
	return allowed
}

func (s *AccessService) authorize(ctx context.Context, resource scope.ID, required data.GroupPermission) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	if actor.IsAdmin {
		return true
	}
	if own, ok := s.mode.OwnerScopeID(ctx); ok && own == resource {
		return true
	}
	if s.mode.CurrentMode(ctx) == ModeGroup {
		if groupID, isGroup := resource.GroupID(); isGroup {
			return s.hasTier(ctx, groupID, actor.UserID, required)
		}
	}
	return false
}

// AuthorizeGroup evaluates group access without reference to a concrete
// resource: the actor must hold at least the required tier in the group.
func (s *AccessService) AuthorizeGroup(ctx context.Context, groupID int64, required data.GroupPermission) bool {
	allowed := s.authorizeGroup(ctx, groupID, required)
	metrics.RecordDecision("group", allowed)
	return allowed
}

func (s *AccessService) authorizeGroup(ctx context.Context, groupID int64, required data.GroupPermission) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	if actor.IsAdmin {
		return true
	}
	return s.hasTier(ctx, groupID, actor.UserID, required)
}

// CanModify gates write operations on an owned resource. Personal
// resources are writable only by their owner; group resources require the
// given tier in the owning group regardless of the actor's current mode.
func (s *AccessService) CanModify(ctx context.Context, resource scope.ID, required data.GroupPermission) bool {
	allowed := s.canModify(ctx, resource, required)
	metrics.RecordDecision("modify", allowed)
	return allowed
}

func (s *AccessService) canModify(ctx context.Context, resource scope.ID, required data.GroupPermission) bool {
	actor := middleware.GetActor(ctx)
	if !actor.IsAuthenticated {
		return false
	}
	if actor.IsAdmin {
		return true
	}
	if userID, isPersonal := resource.UserID(); isPersonal {
		return userID == actor.UserID
	}
	if groupID, isGroup := resource.GroupID(); isGroup {
		return s.hasTier(ctx, groupID, actor.UserID, required)
	}
	// Unowned (global) resources are admin-only.
	return false
}

func (s *AccessService) hasTier(ctx context.Context, groupID int64, userID string, required data.GroupPermission) bool {
	m, err := s.memberships.Membership(ctx, groupID, userID)
	if err != nil {
		s.log.Error(err, "membership lookup failed; denying access")
		return false
	}
	return m != nil && m.Permission >= required
}
