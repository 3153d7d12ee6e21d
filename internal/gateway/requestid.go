package gateway

import (
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader carries the per-request correlation id. Incoming ids are
// honored so upstream proxies can thread their own.
const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns each request a correlation id and echoes it in
// the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
