package handler

import (
	"net/http"
	"time"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
)

// ManualHandler exposes manual CRUD, transfer and HTML export.
type ManualHandler struct {
	manuals *service.ManualService
}

// NewManualHandler creates a new ManualHandler.
func NewManualHandler(manuals *service.ManualService) *ManualHandler {
	return &ManualHandler{manuals: manuals}
}

type manualResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	CategoryID int64     `json:"category_id"`
	OwnerScope string    `json:"owner_scope"`
	CreatorID  string    `json:"creator_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func toManualResponse(m *data.Manual) manualResponse {
	return manualResponse{
		ID:         m.ID,
		Title:      m.Title,
		CategoryID: m.CategoryID,
		OwnerScope: m.OwnerScope.String(),
		CreatorID:  m.CreatorID,
		CreatedAt:  m.CreatedAt,
	}
}

type manualRequest struct {
	Title      string `json:"title" validate:"required,max=100"`
	CategoryID int64  `json:"category_id" validate:"required"`
}

func (h *ManualHandler) list(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	manuals := h.manuals.List(r.Context())
	resp := make([]manualResponse, 0, len(manuals))
	for _, m := range manuals {
		resp = append(resp, toManualResponse(m))
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (h *ManualHandler) get(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	manual, ok := h.manuals.Get(r.Context(), id)
	if !ok {
		return errNotFound()
	}
	return writeJSON(w, http.StatusOK, toManualResponse(manual))
}

func (h *ManualHandler) create(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req manualRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	manual, ok := h.manuals.Create(r.Context(), req.Title, req.CategoryID)
	if !ok {
		return errForbidden()
	}
	return writeJSON(w, http.StatusCreated, toManualResponse(manual))
}

func (h *ManualHandler) update(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	var req manualRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	if !h.manuals.Update(r.Context(), id, req.Title, req.CategoryID) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *ManualHandler) delete(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	if !h.manuals.Delete(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}

func (h *ManualHandler) transfer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	if !h.manuals.TransferToGroup(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h *ManualHandler) export(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	html, ok := h.manuals.Export(r.Context(), id)
	if !ok {
		return errNotFound()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
	return nil
}
