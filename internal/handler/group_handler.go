package handler

import (
	"net/http"
	"time"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
)

// GroupHandler exposes the group directory: creation, the join-request
// lifecycle and membership administration.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type groupResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Code        string  `json:"code"`
	IsOwner     bool    `json:"is_owner"`
}

func toGroupResponse(g *data.Group, actorID string) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Code:        g.Code,
		IsOwner:     g.IsOwnedBy(actorID),
	}
}

type memberResponse struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Permission  string    `json:"permission"`
	JoinedAt    time.Time `json:"joined_at"`
}

type joinRequestResponse struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	RequesterID string    `json:"requester_id"`
	Message     *string   `json:"message,omitempty"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

type createGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=50"`
	Description *string `json:"description" validate:"omitempty,max=200"`
}

type joinGroupRequest struct {
	Code    string  `json:"code" validate:"required"`
	Message *string `json:"message" validate:"omitempty,max=500"`
}

type processJoinRequest struct {
	Approve    bool    `json:"approve"`
	Permission *string `json:"permission" validate:"omitempty,oneof=view_only partial_edit full_edit"`
}

type updatePermissionRequest struct {
	Permission string `json:"permission" validate:"required,oneof=view_only partial_edit full_edit"`
}

func parsePermission(s string) (data.GroupPermission, bool) {
	switch s {
	case "view_only":
		return data.PermissionViewOnly, true
	case "partial_edit":
		return data.PermissionPartialEdit, true
	case "full_edit":
		return data.PermissionFullEdit, true
	default:
		return 0, false
	}
}

func (h *GroupHandler) create(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req createGroupRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	group, ok := h.groups.CreateGroup(r.Context(), req.Name, req.Description)
	if !ok {
		return errForbidden()
	}
	actor := middleware.GetActor(r.Context())
	return writeJSON(w, http.StatusCreated, toGroupResponse(group, actor.UserID))
}

func (h *GroupHandler) current(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	group, ok := h.groups.CurrentGroup(r.Context())
	if !ok {
		return errNotFound()
	}
	actor := middleware.GetActor(r.Context())
	return writeJSON(w, http.StatusOK, toGroupResponse(group, actor.UserID))
}

func (h *GroupHandler) get(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "groupID")
	if appErr != nil {
		return appErr
	}
	group, ok := h.groups.Get(r.Context(), id)
	if !ok {
		return errNotFound()
	}
	actor := middleware.GetActor(r.Context())
	return writeJSON(w, http.StatusOK, toGroupResponse(group, actor.UserID))
}

func (h *GroupHandler) members(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "groupID")
	if appErr != nil {
		return appErr
	}
	members := h.groups.Members(r.Context(), id)
	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Permission:  m.Permission.String(),
			JoinedAt:    m.JoinedAt,
		})
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (h *GroupHandler) join(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req joinGroupRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	if !h.groups.RequestToJoin(r.Context(), req.Code, req.Message) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

func (h *GroupHandler) pendingRequests(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	reqs := h.groups.PendingRequests(r.Context())
	resp := make([]joinRequestResponse, 0, len(reqs))
	for _, req := range reqs {
		resp = append(resp, joinRequestResponse{
			ID:          req.ID,
			GroupID:     req.GroupID,
			RequesterID: req.RequesterID,
			Message:     req.Message,
			Status:      req.Status.String(),
			RequestedAt: req.RequestedAt,
		})
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (h *GroupHandler) processRequest(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "requestID")
	if appErr != nil {
		return appErr
	}
	var req processJoinRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	var permission *data.GroupPermission
	if req.Permission != nil {
		if p, ok := parsePermission(*req.Permission); ok {
			permission = &p
		}
	}
	if !h.groups.ProcessJoinRequest(r.Context(), id, req.Approve, permission) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *GroupHandler) removeMember(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	groupID, appErr := idParam(r, "groupID")
	if appErr != nil {
		return appErr
	}
	userID := userParam(r)
	if userID == "" {
		return errNotFound()
	}
	if !h.groups.RemoveMember(r.Context(), groupID, userID) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}

func (h *GroupHandler) updatePermission(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	groupID, appErr := idParam(r, "groupID")
	if appErr != nil {
		return appErr
	}
	userID := userParam(r)
	if userID == "" {
		return errNotFound()
	}
	var req updatePermissionRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	permission, _ := parsePermission(req.Permission)
	if !h.groups.UpdateMemberPermission(r.Context(), groupID, userID, permission) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"permission": permission.String()})
}

func (h *GroupHandler) leave(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !h.groups.LeaveGroup(r.Context()) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}

func (h *GroupHandler) delete(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "groupID")
	if appErr != nil {
		return appErr
	}
	if !h.groups.DeleteGroup(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}
