package handler

import (
	"net/http"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
)

// CategoryHandler exposes category CRUD and the transfer-to-group
// operation.
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Description      *string `json:"description,omitempty"`
	IsDefault        bool    `json:"is_default"`
	OwnerScope       string  `json:"owner_scope,omitempty"`
	AllowPartialEdit bool    `json:"allow_partial_edit"`
	ManualCount      int     `json:"manual_count"`
}

func toCategoryResponse(c *data.Category) categoryResponse {
	resp := categoryResponse{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		IsDefault:        c.IsDefault,
		AllowPartialEdit: c.AllowPartialEdit,
		ManualCount:      c.ManualCount,
	}
	if !c.OwnerScope.IsZero() {
		resp.OwnerScope = c.OwnerScope.String()
	}
	return resp
}

type categoryRequest struct {
	Name             string  `json:"name" validate:"required,max=100"`
	Description      *string `json:"description" validate:"omitempty,max=500"`
	AllowPartialEdit bool    `json:"allow_partial_edit"`
}

func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories := h.categories.List(r.Context())
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, toCategoryResponse(c))
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (h *CategoryHandler) get(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "categoryID")
	if appErr != nil {
		return appErr
	}
	category, ok := h.categories.Get(r.Context(), id)
	if !ok {
		return errNotFound()
	}
	return writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (h *CategoryHandler) create(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req categoryRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	category, ok := h.categories.Create(r.Context(), req.Name, req.Description, req.AllowPartialEdit)
	if !ok {
		return errForbidden()
	}
	return writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (h *CategoryHandler) update(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "categoryID")
	if appErr != nil {
		return appErr
	}
	var req categoryRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	if !h.categories.Update(r.Context(), id, req.Name, req.Description, req.AllowPartialEdit) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "categoryID")
	if appErr != nil {
		return appErr
	}
	if !h.categories.Delete(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}

func (h *CategoryHandler) transfer(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "categoryID")
	if appErr != nil {
		return appErr
	}
	if !h.categories.TransferToGroup(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}
