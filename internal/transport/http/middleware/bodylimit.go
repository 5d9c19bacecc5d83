package middleware

import (
	"mime"
	"net/http"
)

// LimitJSONBody caps request bodies at n bytes. Multipart bodies are left to
// Upload, which applies the file size limit. A non-positive n disables the cap.
func LimitJSONBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if r.Body != nil && mediaType != "multipart/form-data" {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
