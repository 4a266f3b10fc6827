// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON body every error reply carries.
type errorResponse struct {
	Error string `json:"error"`
}

// Render writes a JSON error body with the given status.
func Render(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// RenderNotFound replies 404. Used for both absent and access-denied
// articles so the response does not reveal which it was.
func RenderNotFound(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "not found"
	}
	Render(w, http.StatusNotFound, msg)
}

// RenderBadRequest replies 400.
func RenderBadRequest(w http.ResponseWriter, msg string) {
	Render(w, http.StatusBadRequest, msg)
}

// RenderConflict replies 409.
func RenderConflict(w http.ResponseWriter, msg string) {
	Render(w, http.StatusConflict, msg)
}

// RenderUnauthorized replies 401.
func RenderUnauthorized(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "requesting user not identified"
	}
	Render(w, http.StatusUnauthorized, msg)
}
