package middlewares

import (
	"net/http"
	"regexp"

	"github.com/segmentio/ksuid"
)

const headerRequestID = "X-Request-ID"

var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// WithRequestID reutiliza X-Request-ID si es seguro o genera un ksuid.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if !requestIDRe.MatchString(id) {
				id = ksuid.New().String()
			}
			w.Header().Set(headerRequestID, id)
			next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), id)))
		})
	}
}
