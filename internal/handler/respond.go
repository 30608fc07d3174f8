package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/parentpal/parentpal/internal/chore"
	"github.com/parentpal/parentpal/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps domain errors onto HTTP statuses. Unknown errors
// become a generic 500 so internals never leak to clients.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	var ve *model.ValidationError
	var te *chore.TransitionError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusConflict, te.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "a member with this email already exists")
	case errors.Is(err, model.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, "not enough points")
	case errors.Is(err, model.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message body is required")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
