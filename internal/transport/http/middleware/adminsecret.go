package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/response"
)

const AdminSecretHeader = "X-Admin-Secret"

// AdminSecret only lets requests carrying the configured secret through.
func AdminSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				response.Error(w, r, apperr.Forbidden("Sorry, but you can't access this"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
