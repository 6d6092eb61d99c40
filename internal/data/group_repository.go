package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// GroupRepository handles database operations for groups, memberships and
// join requests. Multi-row state transitions run in a single transaction
// so the membership table and the denormalized pointer on users can never
// diverge (partial application would be a correctness bug).
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, name, description, code, owner_id, created_at`

// GetByID retrieves a group by id. Not found is not an error.
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*Group, error) {
	var group Group
	query := `SELECT ` + groupColumns + ` FROM user_groups WHERE id = ?`
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by id: %w", err)
	}
	return &group, nil
}

// GetByCode retrieves a group by its join code. Not found is not an error.
func (r *GroupRepository) GetByCode(ctx context.Context, code string) (*Group, error) {
	var group Group
	query := `SELECT ` + groupColumns + ` FROM user_groups WHERE code = ?`
	if err := r.db.GetContext(ctx, &group, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group by code: %w", err)
	}
	return &group, nil
}

// CodeExists reports whether any group already uses the given join code.
func (r *GroupRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_groups WHERE code = ?`, code); err != nil {
		return false, fmt.Errorf("failed to check group code: %w", err)
	}
	return count > 0, nil
}

// OwnsAnyGroup reports whether the user is the owner of at least one group.
func (r *GroupRepository) OwnsAnyGroup(ctx context.Context, userID string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_groups WHERE owner_id = ?`, userID); err != nil {
		return false, fmt.Errorf("failed to check group ownership: %w", err)
	}
	return count > 0, nil
}

// CreateWithOwner inserts the group, the owner's FullEdit membership and
// the owner's denormalized pointer atomically, and returns the new group id.
func (r *GroupRepository) CreateWithOwner(ctx context.Context, group *Group, ownerID string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_groups (name, description, code, owner_id) VALUES (?, ?, ?, ?)`,
		group.Name, group.Description, group.Code, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert group: %w", err)
	}
	groupID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get group id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_memberships (group_id, user_id, permission) VALUES (?, ?, ?)`,
		groupID, ownerID, PermissionFullEdit)
	if err != nil {
		return 0, fmt.Errorf("failed to insert owner membership: %w", err)
	}
	if err := setGroupPointer(ctx, tx, ownerID, groupID, PermissionFullEdit); err != nil {
		return 0, fmt.Errorf("failed to set owner group pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit group creation: %w", err)
	}
	return groupID, nil
}

// MembershipByUser returns the user's membership, if any.
func (r *GroupRepository) MembershipByUser(ctx context.Context, userID string) (*GroupMembership, error) {
	var m GroupMembership
	query := `SELECT id, group_id, user_id, permission, joined_at, '' AS display_name
		FROM group_memberships WHERE user_id = ?`
	if err := r.db.GetContext(ctx, &m, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership by user: %w", err)
	}
	return &m, nil
}

// Membership returns the membership for a (group, user) pair, if any.
func (r *GroupRepository) Membership(ctx context.Context, groupID int64, userID string) (*GroupMembership, error) {
	var m GroupMembership
	query := `SELECT id, group_id, user_id, permission, joined_at, '' AS display_name
		FROM group_memberships WHERE group_id = ? AND user_id = ?`
	if err := r.db.GetContext(ctx, &m, query, groupID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

// Members lists the memberships of a group with member display names.
func (r *GroupRepository) Members(ctx context.Context, groupID int64) ([]*GroupMembership, error) {
	var members []*GroupMembership
	query := `SELECT gm.id, gm.group_id, gm.user_id, gm.permission, gm.joined_at, u.display_name
		FROM group_memberships gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at`
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return members, nil
}

// RemoveMembership deletes a membership row and clears the member's
// denormalized pointer in one transaction.
func (r *GroupRepository) RemoveMembership(ctx context.Context, groupID int64, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no membership found for group %d and user %s", groupID, userID)
	}
	if err := clearGroupPointer(ctx, tx, userID); err != nil {
		return fmt.Errorf("failed to clear group pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit membership removal: %w", err)
	}
	return nil
}

// UpdateMembershipPermission changes a member's tier and mirrors it into
// the denormalized pointer in one transaction.
func (r *GroupRepository) UpdateMembershipPermission(ctx context.Context, groupID int64, userID string, permission GroupPermission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE group_memberships SET permission = ? WHERE group_id = ? AND user_id = ?`,
		permission, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to update membership permission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no membership found for group %d and user %s", groupID, userID)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET group_permission = ? WHERE id = ? AND group_id = ?`,
		permission, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to update group pointer permission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit permission update: %w", err)
	}
	return nil
}

// PendingRequestExists reports whether the requester already has a pending
// request for the group.
func (r *GroupRepository) PendingRequestExists(ctx context.Context, groupID int64, requesterID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM group_join_requests WHERE group_id = ? AND requester_id = ? AND status = ?`
	if err := r.db.GetContext(ctx, &count, query, groupID, requesterID, JoinRequestPending); err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return count > 0, nil
}

// InsertJoinRequest stores a new pending join request and returns its id.
func (r *GroupRepository) InsertJoinRequest(ctx context.Context, req *GroupJoinRequest) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO group_join_requests (group_id, requester_id, message, status) VALUES (?, ?, ?, ?)`,
		req.GroupID, req.RequesterID, req.Message, JoinRequestPending)
	if err != nil {
		return 0, fmt.Errorf("failed to insert join request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get join request id: %w", err)
	}
	return id, nil
}

// JoinRequestByID retrieves a join request. Not found is not an error.
func (r *GroupRepository) JoinRequestByID(ctx context.Context, id int64) (*GroupJoinRequest, error) {
	var req GroupJoinRequest
	query := `SELECT id, group_id, requester_id, message, status, requested_at, processed_at, processed_by_id
		FROM group_join_requests WHERE id = ?`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return &req, nil
}

// PendingRequestsForOwner lists pending requests across all groups owned
// by the given user, newest first.
func (r *GroupRepository) PendingRequestsForOwner(ctx context.Context, ownerID string) ([]*GroupJoinRequest, error) {
	var requests []*GroupJoinRequest
	query := `SELECT gjr.id, gjr.group_id, gjr.requester_id, gjr.message, gjr.status, gjr.requested_at, gjr.processed_at, gjr.processed_by_id
		FROM group_join_requests gjr
		JOIN user_groups g ON g.id = gjr.group_id
		WHERE g.owner_id = ? AND gjr.status = ?
		ORDER BY gjr.requested_at DESC`
	if err := r.db.SelectContext(ctx, &requests, query, ownerID, JoinRequestPending); err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return requests, nil
}

// FinalizeJoinRequest moves a pending request into a terminal rejected
// state. Already-terminal requests are left untouched and reported.
func (r *GroupRepository) FinalizeJoinRequest(ctx context.Context, requestID int64, processorID string, status JoinRequestStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_join_requests SET status = ?, processed_at = ?, processed_by_id = ? WHERE id = ? AND status = ?`,
		status, time.Now().UTC(), processorID, requestID, JoinRequestPending)
	if err != nil {
		return fmt.Errorf("failed to finalize join request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("join request %d is not pending", requestID)
	}
	return nil
}

// ApproveJoinRequest commits the three writes of an approval atomically:
// the request's terminal state, the new membership row, and the
// requester's denormalized pointer.
func (r *GroupRepository) ApproveJoinRequest(ctx context.Context, requestID int64, processorID string, permission GroupPermission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var req GroupJoinRequest
	query := `SELECT id, group_id, requester_id, message, status, requested_at, processed_at, processed_by_id
		FROM group_join_requests WHERE id = ?`
	if err := tx.GetContext(ctx, &req, query, requestID); err != nil {
		return fmt.Errorf("failed to load join request: %w", err)
	}
	if req.Status.Terminal() {
		return fmt.Errorf("join request %d is not pending", requestID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE group_join_requests SET status = ?, processed_at = ?, processed_by_id = ? WHERE id = ? AND status = ?`,
		JoinRequestApproved, time.Now().UTC(), processorID, requestID, JoinRequestPending)
	if err != nil {
		return fmt.Errorf("failed to approve join request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("join request %d is not pending", requestID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_memberships (group_id, user_id, permission) VALUES (?, ?, ?)`,
		req.GroupID, req.RequesterID, permission)
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	if err := setGroupPointer(ctx, tx, req.RequesterID, req.GroupID, permission); err != nil {
		return fmt.Errorf("failed to set group pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}
	return nil
}

// DeleteCascade removes the group, all its join requests and memberships,
// and clears every affected member's denormalized pointer, atomically.
func (r *GroupRepository) DeleteCascade(ctx context.Context, groupID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_join_requests WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to delete join requests: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_memberships WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET group_id = NULL, group_permission = NULL WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to clear member pointers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group deletion: %w", err)
	}
	return nil
}
