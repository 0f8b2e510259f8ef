package middleware

import (
	"net/http"

	apperrors "examslots/pkg/errors"
	httputil "examslots/pkg/http"
)

// MaxRequestSize caps request bodies at limit bytes. Requests announcing a
// larger body are rejected up front; others fail on read.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				httputil.WriteError(w, apperrors.PayloadTooLarge(limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
