package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/engine"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

func parseJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeEngineError maps the engine's error kinds onto status codes. This is
// the only place HTTP knows about the core's taxonomy.
func writeEngineError(w http.ResponseWriter, err error) {
	var needErr *engine.NeedNotFoundError
	var userErr *engine.UserNotFoundError
	switch {
	case errors.Is(err, engine.ErrNotSignedIn):
		writeError(w, http.StatusForbidden, "no supporter is signed in")
	case errors.As(err, &needErr):
		writeError(w, http.StatusNotFound, needErr.Error())
	case errors.As(err, &userErr):
		writeError(w, http.StatusNotFound, userErr.Error())
	default:
		slog.Error("Storage failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
