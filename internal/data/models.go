package data

import (
	"time"

	"github.com/owaso30/ManualApp/internal/scope"
)

// GroupPermission is the ordered capability tier of a group member.
// The numeric order is significant: ViewOnly < PartialEdit < FullEdit.
type GroupPermission int

const (
	PermissionViewOnly GroupPermission = iota
	PermissionPartialEdit
	PermissionFullEdit
)

func (p GroupPermission) String() string {
	switch p {
	case PermissionViewOnly:
		return "view_only"
	case PermissionPartialEdit:
		return "partial_edit"
	case PermissionFullEdit:
		return "full_edit"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the defined tiers.
func (p GroupPermission) Valid() bool {
	return p >= PermissionViewOnly && p <= PermissionFullEdit
}

// JoinRequestStatus is the lifecycle state of a group join request.
// Pending is the only non-terminal state.
type JoinRequestStatus int

const (
	JoinRequestPending JoinRequestStatus = iota
	JoinRequestApproved
	JoinRequestRejected
	// JoinRequestRejectedConflict records an approval that was overturned
	// because the requester already joined or created another group by
	// processing time.
	JoinRequestRejectedConflict
)

func (s JoinRequestStatus) String() string {
	switch s {
	case JoinRequestPending:
		return "pending"
	case JoinRequestApproved:
		return "approved"
	case JoinRequestRejected:
		return "rejected"
	case JoinRequestRejectedConflict:
		return "rejected_conflict"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is immutable.
func (s JoinRequestStatus) Terminal() bool { return s != JoinRequestPending }

// User represents an authenticated account. GroupID and GroupPermission
// duplicate the membership table so the mode resolver can answer "is this
// user in a group" with a single row read; every membership mutation keeps
// them in sync inside the same transaction.
type User struct {
	ID              string           `db:"id"`
	Email           string           `db:"email"`
	DisplayName     string           `db:"display_name"`
	IsAdmin         bool             `db:"is_admin"`
	GroupID         *int64           `db:"group_id"`
	GroupPermission *GroupPermission `db:"group_permission"`
	CreatedAt       time.Time        `db:"created_at"`
}

// Group is a collaborative workspace. Code is the human-shareable join
// code, unique and immutable after creation.
type Group struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Code        string    `db:"code"`
	OwnerID     *string   `db:"owner_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// IsOwnedBy reports whether userID is the group's owner.
func (g *Group) IsOwnedBy(userID string) bool {
	return g.OwnerID != nil && *g.OwnerID == userID
}

// GroupMembership links a user to a group with a permission tier.
// (GroupID, UserID) is unique; a user holds at most one membership.
type GroupMembership struct {
	ID         int64           `db:"id"`
	GroupID    int64           `db:"group_id"`
	UserID     string          `db:"user_id"`
	Permission GroupPermission `db:"permission"`
	JoinedAt   time.Time       `db:"joined_at"`

	// Populated by joined queries, not a column.
	DisplayName string `db:"display_name"`
}

// GroupJoinRequest is a user's application to join a group, processed by
// the group owner.
type GroupJoinRequest struct {
	ID            int64             `db:"id"`
	GroupID       int64             `db:"group_id"`
	RequesterID   string            `db:"requester_id"`
	Message       *string           `db:"message"`
	Status        JoinRequestStatus `db:"status"`
	RequestedAt   time.Time         `db:"requested_at"`
	ProcessedAt   *time.Time        `db:"processed_at"`
	ProcessedByID *string           `db:"processed_by_id"`
}

// Category groups manuals. Exactly one row has IsDefault set; it is
// owner-less, undeletable and uneditable, for every actor.
type Category struct {
	ID               int64     `db:"id"`
	Name             string    `db:"name"`
	Description      *string   `db:"description"`
	IsDefault        bool      `db:"is_default"`
	OwnerScope       scope.ID  `db:"owner_scope"`
	CreatorID        *string   `db:"creator_id"`
	AllowPartialEdit bool      `db:"allow_partial_edit"`
	CreatedAt        time.Time `db:"created_at"`

	// Number of manuals visible to the current actor, for listings.
	ManualCount int `db:"manual_count"`
}

// Manual is an authored document of ordered steps. OwnerScope, not
// CreatorID, governs access; CreatorID is audit metadata.
type Manual struct {
	ID         int64     `db:"id"`
	Title      string    `db:"title"`
	CategoryID int64     `db:"category_id"`
	OwnerScope scope.ID  `db:"owner_scope"`
	CreatorID  string    `db:"creator_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// Content is a single step of a manual. Ordinal is a dense 1..N sequence
// within the manual, renumbered after every deletion.
type Content struct {
	ID        int64     `db:"id"`
	ManualID  int64     `db:"manual_id"`
	Ordinal   int       `db:"ordinal"`
	Text      string    `db:"text"`
	CreatorID string    `db:"creator_id"`
	CreatedAt time.Time `db:"created_at"`

	Image *Image `db:"-"`
}

// Image is the optional picture attached to a step. FilePath is an opaque
// reference to the externally stored blob.
type Image struct {
	ID        int64  `db:"id"`
	FilePath  string `db:"file_path"`
	ContentID int64  `db:"content_id"`
}
