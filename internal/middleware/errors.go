package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// writeError writes err in the API error shape.
func writeError(w http.ResponseWriter, err *apperrors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(err.ToResponse())
}

// writeErrorStatus writes err with an explicit status.
func writeErrorStatus(w http.ResponseWriter, status int, err *apperrors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err.ToResponse())
}
