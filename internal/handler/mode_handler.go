package handler

import (
	"net/http"

	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
)

// ModeHandler exposes the actor's scope mode: read it, change it, and
// inspect the resolved owner scope.
type ModeHandler struct {
	mode *service.ModeService
}

// NewModeHandler creates a new ModeHandler.
func NewModeHandler(mode *service.ModeService) *ModeHandler {
	return &ModeHandler{mode: mode}
}

type modeResponse struct {
	Mode          string `json:"mode"`
	OwnerScope    string `json:"owner_scope"`
	IsGroupMember bool   `json:"is_group_member"`
}

type setModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=personal group"`
}

func (h *ModeHandler) get(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return writeJSON(w, http.StatusOK, h.currentState(r))
}

func (h *ModeHandler) set(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req setModeRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	h.mode.SetMode(r.Context(), service.Mode(req.Mode))
	return writeJSON(w, http.StatusOK, h.currentState(r))
}

func (h *ModeHandler) currentState(r *http.Request) modeResponse {
	ctx := r.Context()
	resp := modeResponse{
		Mode:          string(h.mode.CurrentMode(ctx)),
		IsGroupMember: h.mode.IsGroupMember(ctx),
	}
	if own, ok := h.mode.OwnerScopeID(ctx); ok {
		resp.OwnerScope = own.String()
	}
	return resp
}
