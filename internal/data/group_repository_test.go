//go:build integration

package data

import (
	"context"
	"testing"
)

func TestGroupRepository_CreateWithOwner(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	seedUser(t, db, "bob")
	groupID, err := repo.CreateWithOwner(ctx, &Group{Name: "ops", Code: "G-abc123def456"}, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := repo.Membership(ctx, groupID, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m.Permission != PermissionFullEdit {
		t.Errorf("expected a full-edit owner membership, got %+v", m)
	}

	user, err := NewUserRepository(db).GetByID(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.GroupID == nil || *user.GroupID != groupID {
		t.Errorf("expected the owner's group pointer set, got %+v", user.GroupID)
	}
}

func TestGroupRepository_ApproveJoinRequest(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	seedUser(t, db, "bob")
	seedUser(t, db, "alice")
	groupID, err := repo.CreateWithOwner(ctx, &Group{Name: "ops", Code: "G-abc123def456"}, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqID, err := repo.InsertJoinRequest(ctx, &GroupJoinRequest{GroupID: groupID, RequesterID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.ApproveJoinRequest(ctx, reqID, "bob", PermissionPartialEdit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := repo.JoinRequestByID(ctx, reqID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != JoinRequestApproved {
		t.Errorf("expected approved status, got %v", req.Status)
	}
	if req.ProcessedByID == nil || *req.ProcessedByID != "bob" {
		t.Errorf("expected processor recorded, got %+v", req.ProcessedByID)
	}

	m, err := repo.Membership(ctx, groupID, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m.Permission != PermissionPartialEdit {
		t.Errorf("expected a partial-edit membership, got %+v", m)
	}

	user, err := NewUserRepository(db).GetByID(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.GroupID == nil || *user.GroupID != groupID {
		t.Errorf("expected alice's group pointer set, got %+v", user.GroupID)
	}

	// A terminal request cannot be processed again.
	if err := repo.ApproveJoinRequest(ctx, reqID, "bob", PermissionFullEdit); err == nil {
		t.Error("expected re-approval of a terminal request to fail")
	}
	if err := repo.FinalizeJoinRequest(ctx, reqID, "bob", JoinRequestRejected); err == nil {
		t.Error("expected rejection of a terminal request to fail")
	}
}

func TestGroupRepository_FinalizeRejectsOnlyTerminalStatuses(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	seedUser(t, db, "bob")
	groupID, err := repo.CreateWithOwner(ctx, &Group{Name: "ops", Code: "G-abc123def456"}, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqID, err := repo.InsertJoinRequest(ctx, &GroupJoinRequest{GroupID: groupID, RequesterID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.FinalizeJoinRequest(ctx, reqID, "bob", JoinRequestPending); err == nil {
		t.Error("expected finalizing to pending to fail")
	}
	if err := repo.FinalizeJoinRequest(ctx, reqID, "bob", JoinRequestRejectedConflict); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	req, err := repo.JoinRequestByID(ctx, reqID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != JoinRequestRejectedConflict {
		t.Errorf("expected rejected_conflict status, got %v", req.Status)
	}
}

func TestGroupRepository_RemoveMembershipClearsPointer(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	seedUser(t, db, "bob")
	seedUser(t, db, "alice")
	groupID, err := repo.CreateWithOwner(ctx, &Group{Name: "ops", Code: "G-abc123def456"}, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqID, err := repo.InsertJoinRequest(ctx, &GroupJoinRequest{GroupID: groupID, RequesterID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.ApproveJoinRequest(ctx, reqID, "bob", PermissionViewOnly); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.RemoveMembership(ctx, groupID, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := repo.Membership(ctx, groupID, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("expected no membership, got %+v", m)
	}
	user, err := NewUserRepository(db).GetByID(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.GroupID != nil {
		t.Errorf("expected the pointer cleared, got %+v", user.GroupID)
	}
}

func TestGroupRepository_DeleteCascade(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	seedUser(t, db, "bob")
	seedUser(t, db, "alice")
	groupID, err := repo.CreateWithOwner(ctx, &Group{Name: "ops", Code: "G-abc123def456"}, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.InsertJoinRequest(ctx, &GroupJoinRequest{GroupID: groupID, RequesterID: "alice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.DeleteCascade(ctx, groupID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	group, err := repo.GetByID(ctx, groupID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if group != nil {
		t.Errorf("expected the group gone, got %+v", group)
	}
	user, err := NewUserRepository(db).GetByID(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.GroupID != nil {
		t.Errorf("expected the owner's pointer cleared, got %+v", user.GroupID)
	}
	reqs, err := repo.PendingRequestsForOwner(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 0 {
		t.Errorf("expected no surviving join requests, got %d", len(reqs))
	}
}

func TestGroupRepository_PendingRequestExists(t *testing.T) {
	db, teardown := newTestDB(t)
	defer teardown()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	seedUser(t, db, "bob")
	groupID, err := repo.CreateWithOwner(ctx, &Group{Name: "ops", Code: "G-abc123def456"}, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err := repo.PendingRequestExists(ctx, groupID, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected no pending request yet")
	}

	reqID, err := repo.InsertJoinRequest(ctx, &GroupJoinRequest{GroupID: groupID, RequesterID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exists, err = repo.PendingRequestExists(ctx, groupID, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected the pending request to be visible")
	}

	// Terminal requests no longer block a fresh application.
	if err := repo.FinalizeJoinRequest(ctx, reqID, "bob", JoinRequestRejected); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exists, err = repo.PendingRequestExists(ctx, groupID, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected a rejected request not to count as pending")
	}
}
