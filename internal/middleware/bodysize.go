package middleware

import (
	"net/http"

	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

const (
	// DefaultMaxBodySize covers a pitch plus its question set.
	DefaultMaxBodySize = 1 << 20

	// MaxMessageBodySize bounds a single chat message request.
	MaxMessageBodySize = 64 << 10
)

var errBodyTooLarge = apperrors.ValidationFailed("request body too large")

// BodySizeLimiter answers 413 when Content-Length exceeds maxBytes and cuts
// off longer chunked bodies, which then fail to decode. maxBytes <= 0 means
// DefaultMaxBodySize.
func BodySizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Body == nil || r.Body == http.NoBody:
			case r.ContentLength > maxBytes:
				w.Header().Set("Connection", "close")
				writeErrorStatus(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
				return
			default:
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
