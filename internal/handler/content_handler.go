package handler

import (
	"net/http"

	"github.com/owaso30/ManualApp/internal/data"
	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/service"
)

// maxImageUploadBytes caps step image uploads at 10 MiB.
const maxImageUploadBytes = 10 << 20

// ContentHandler exposes a manual's ordered steps: text, ordering and
// image attachments.
type ContentHandler struct {
	contents *service.ContentService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(contents *service.ContentService) *ContentHandler {
	return &ContentHandler{contents: contents}
}

type contentResponse struct {
	ID       int64  `json:"id"`
	ManualID int64  `json:"manual_id"`
	Ordinal  int    `json:"ordinal"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

func toContentResponse(c *data.Content) contentResponse {
	resp := contentResponse{
		ID:       c.ID,
		ManualID: c.ManualID,
		Ordinal:  c.Ordinal,
		Text:     c.Text,
	}
	if c.Image != nil {
		resp.ImageURL = c.Image.FilePath
	}
	return resp
}

type contentTextRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type moveContentRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

func (h *ContentHandler) listByManual(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	manualID, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	contents, ok := h.contents.ListByManual(r.Context(), manualID)
	if !ok {
		return errNotFound()
	}
	resp := make([]contentResponse, 0, len(contents))
	for _, c := range contents {
		resp = append(resp, toContentResponse(c))
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) add(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	manualID, appErr := idParam(r, "manualID")
	if appErr != nil {
		return appErr
	}
	var req contentTextRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	content, ok := h.contents.Add(r.Context(), manualID, req.Text)
	if !ok {
		return errForbidden()
	}
	return writeJSON(w, http.StatusCreated, toContentResponse(content))
}

func (h *ContentHandler) updateText(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "contentID")
	if appErr != nil {
		return appErr
	}
	var req contentTextRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	if !h.contents.UpdateText(r.Context(), id, req.Text) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *ContentHandler) delete(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "contentID")
	if appErr != nil {
		return appErr
	}
	if !h.contents.Delete(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}

func (h *ContentHandler) move(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "contentID")
	if appErr != nil {
		return appErr
	}
	var req moveContentRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	if !h.contents.Move(r.Context(), id, req.Direction == "up") {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

func (h *ContentHandler) attachImage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "contentID")
	if appErr != nil {
		return appErr
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid upload", Code: http.StatusBadRequest}
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Missing image file", Code: http.StatusBadRequest}
	}
	defer file.Close()

	url, ok := h.contents.AttachImage(r.Context(), id, header.Filename, file)
	if !ok {
		return errForbidden()
	}
	return writeJSON(w, http.StatusOK, map[string]string{"image_url": url})
}

func (h *ContentHandler) removeImage(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "contentID")
	if appErr != nil {
		return appErr
	}
	if !h.contents.RemoveImage(r.Context(), id) {
		return errForbidden()
	}
	return writeJSON(w, http.StatusNoContent, nil)
}
