//go:build unit

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/scope"
)

// mockMembershipStore is a mock implementation of the MembershipStore interface.
type mockMembershipStore struct {
	membership  *data.GroupMembership
	errToReturn error
}

var _ MembershipStore = (*mockMembershipStore)(nil)

func (m *mockMembershipStore) Membership(ctx context.Context, groupID int64, userID string) (*data.GroupMembership, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	if m.membership != nil && m.membership.GroupID == groupID && m.membership.UserID == userID {
		return m.membership, nil
	}
	return nil, nil
}

func newAccessService(t *testing.T, users *mockUserStore, memberships *mockMembershipStore) *AccessService {
	t.Helper()
	log := newTestLogger(t)
	mode := NewModeService(newMockSessionManager(), users, log)
	return NewAccessService(mode, memberships, log)
}

func TestAccessService_UnauthenticatedDenied(t *testing.T) {
	svc := newAccessService(t, &mockUserStore{}, &mockMembershipStore{})

	if svc.Authorize(context.Background(), scope.Personal("alice"), data.PermissionViewOnly) {
		t.Error("expected deny for unauthenticated actor")
	}
}

func TestAccessService_AdminAlwaysAllowed(t *testing.T) {
	svc := newAccessService(t, &mockUserStore{}, &mockMembershipStore{})
	ctx := actorCtx("root", true)

	if !svc.Authorize(ctx, scope.Personal("alice"), data.PermissionFullEdit) {
		t.Error("expected admin to pass on a foreign personal scope")
	}
	if !svc.Authorize(ctx, scope.SharedGroup(9), data.PermissionFullEdit) {
		t.Error("expected admin to pass on a foreign group scope")
	}
}

func TestAccessService_OwnScopeAllowed(t *testing.T) {
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	svc := newAccessService(t, users, &mockMembershipStore{})
	ctx := actorCtx("alice", false)

	if !svc.Authorize(ctx, scope.Personal("alice"), data.PermissionFullEdit) {
		t.Error("expected allow when resolved scope equals resource scope")
	}
	if svc.Authorize(ctx, scope.Personal("bob"), data.PermissionViewOnly) {
		t.Error("expected deny on a foreign personal scope")
	}
}

func TestAccessService_CrossGroupDenied(t *testing.T) {
	users := &mockUserStore{userToReturn: groupMember("alice", 7, data.PermissionFullEdit)}
	memberships := &mockMembershipStore{membership: &data.GroupMembership{GroupID: 7, UserID: "alice", Permission: data.PermissionFullEdit}}
	svc := newAccessService(t, users, memberships)
	ctx := actorCtx("alice", false)

	if svc.Authorize(ctx, scope.SharedGroup(9), data.PermissionViewOnly) {
		t.Error("expected deny on a group the actor does not belong to")
	}
}

func TestAccessService_GroupTierOrdering(t *testing.T) {
	tests := []struct {
		name     string
		held     data.GroupPermission
		required data.GroupPermission
		allowed  bool
	}{
		{"view only meets view only", data.PermissionViewOnly, data.PermissionViewOnly, true},
		{"view only fails partial edit", data.PermissionViewOnly, data.PermissionPartialEdit, false},
		{"partial edit meets view only", data.PermissionPartialEdit, data.PermissionViewOnly, true},
		{"partial edit fails full edit", data.PermissionPartialEdit, data.PermissionFullEdit, false},
		{"full edit meets full edit", data.PermissionFullEdit, data.PermissionFullEdit, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserStore{userToReturn: groupMember("alice", 7, tt.held)}
			memberships := &mockMembershipStore{membership: &data.GroupMembership{GroupID: 7, UserID: "alice", Permission: tt.held}}
			svc := newAccessService(t, users, memberships)
			ctx := actorCtx("alice", false)

			if got := svc.AuthorizeGroup(ctx, 7, tt.required); got != tt.allowed {
				t.Errorf("AuthorizeGroup(held=%v, required=%v) = %v, want %v", tt.held, tt.required, got, tt.allowed)
			}
		})
	}
}

func TestAccessService_PersonalModeActorStillReachesGroupResourceOnlyInGroupMode(t *testing.T) {
	users := &mockUserStore{userToReturn: groupMember("alice", 7, data.PermissionFullEdit)}
	memberships := &mockMembershipStore{membership: &data.GroupMembership{GroupID: 7, UserID: "alice", Permission: data.PermissionFullEdit}}
	log := newTestLogger(t)
	sessions := newMockSessionManager()
	mode := NewModeService(sessions, users, log)
	svc := NewAccessService(mode, memberships, log)
	ctx := actorCtx("alice", false)

	mode.SetMode(ctx, ModePersonal)
	if svc.Authorize(ctx, scope.SharedGroup(7), data.PermissionViewOnly) {
		t.Error("expected deny for group resource while in personal mode")
	}

	mode.SetMode(ctx, ModeGroup)
	if !svc.Authorize(ctx, scope.SharedGroup(7), data.PermissionViewOnly) {
		t.Error("expected allow for group resource in group mode")
	}
}

func TestAccessService_MembershipErrorDenies(t *testing.T) {
	users := &mockUserStore{userToReturn: &data.User{ID: "alice"}}
	memberships := &mockMembershipStore{errToReturn: errors.New("connection refused")}
	svc := newAccessService(t, users, memberships)
	ctx := actorCtx("alice", false)

	if svc.AuthorizeGroup(ctx, 7, data.PermissionViewOnly) {
		t.Error("expected deny when the membership lookup fails")
	}
}

func TestAccessService_CanModify(t *testing.T) {
	users := &mockUserStore{userToReturn: groupMember("alice", 7, data.PermissionPartialEdit)}
	memberships := &mockMembershipStore{membership: &data.GroupMembership{GroupID: 7, UserID: "alice", Permission: data.PermissionPartialEdit}}
	svc := newAccessService(t, users, memberships)
	ctx := actorCtx("alice", false)

	if !svc.CanModify(ctx, scope.Personal("alice"), data.PermissionFullEdit) {
		t.Error("expected owner to modify their personal resource")
	}
	if svc.CanModify(ctx, scope.Personal("bob"), data.PermissionViewOnly) {
		t.Error("expected deny on a foreign personal resource")
	}
	if !svc.CanModify(ctx, scope.SharedGroup(7), data.PermissionPartialEdit) {
		t.Error("expected partial editor to modify a group resource at partial tier")
	}
	if svc.CanModify(ctx, scope.SharedGroup(7), data.PermissionFullEdit) {
		t.Error("expected partial editor to fail a full-edit requirement")
	}
	if svc.CanModify(ctx, scope.ID{}, data.PermissionViewOnly) {
		t.Error("expected deny on an unowned resource for non-admins")
	}
}
