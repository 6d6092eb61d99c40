package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/owaso30/ManualApp/internal/middleware"
	"github.com/owaso30/ManualApp/internal/validate"
)

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, code int, v interface{}) *middleware.AppError {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return nil
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to encode response", Code: http.StatusInternalServerError}
	}
	return nil
}

// decodeJSON decodes and validates a JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) *middleware.AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body", Code: http.StatusBadRequest}
	}
	if err := validate.Struct(dst); err != nil {
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusBadRequest}
	}
	return nil
}

// idParam parses a numeric URL parameter.
func idParam(r *http.Request, name string) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, &middleware.AppError{Error: err, Message: "Invalid " + name, Code: http.StatusBadRequest}
	}
	return id, nil
}

// userParam returns the user ID URL parameter. OIDC subjects are opaque
// strings, so no parsing beyond presence.
func userParam(r *http.Request) string {
	return chi.URLParam(r, "userID")
}

// errForbidden is the uniform refusal for operations the service layer
// declined. The cause stays in the server log.
func errForbidden() *middleware.AppError {
	return &middleware.AppError{Error: errors.New("operation refused"), Message: "Forbidden", Code: http.StatusForbidden}
}

func errNotFound() *middleware.AppError {
	return &middleware.AppError{Error: errors.New("not found"), Message: "Not Found", Code: http.StatusNotFound}
}
