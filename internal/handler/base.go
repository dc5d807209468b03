// Package handler provides HTTP handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
	"github.com/jkindrix/pitchcheck/internal/middleware"
)

// helper to write JSON
func encodeJSON(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

// JSON writes a JSON response with the appropriate headers.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = encodeJSON(w, data)
	}
}

// APIError writes err as an ErrorResponse. Errors that are not already
// application errors are reported as internal errors without their text.
func APIError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.InternalError("internal server error", err)
	}

	status := appErr.HTTPStatus()
	log := middleware.LoggerWithCorrelation(r.Context(), logger)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	} else {
		log.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.String("message", appErr.Message),
		)
	}

	JSON(w, status, appErr.ToResponse())
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.ValidationFailed("request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.ValidationFailed("request body is required")
		default:
			return apperrors.InvalidFormat("body", "a JSON object")
		}
	}
	return nil
}
