// Package middleware provides HTTP middleware shared by the supervisor
// and specialist surfaces.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avollmer/deskmux/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID is HTTP middleware that extracts X-Request-ID from the
// request header or generates a new one. The ID is stored in the context
// and echoed on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
