package middleware

import "net/http"

// BodyLimit caps request bodies on every method that carries one. Reads
// past the cap fail inside the handler's JSON decode, which reports it as
// a bad payload.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case maxBytes <= 0:
			case r.Method == http.MethodGet, r.Method == http.MethodHead, r.Method == http.MethodOptions:
			default:
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
