package middleware

import "github.com/go-bff-auth/internal/domain"

// roleAllowed reports whether t is in allowed. An empty list admits everyone.
func roleAllowed(allowed []domain.UserType, t domain.UserType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
