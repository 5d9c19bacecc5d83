package handler

import (
	"net/http"

	"github.com/go-bff-auth/internal/domain"
	jwtinfra "github.com/go-bff-auth/internal/infrastructure/jwt"
	"github.com/go-bff-auth/internal/transport/http/response"
)

// Wrap adapts a handler that returns an error. The error is written as an
// error envelope.
func Wrap(fn func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			response.Error(w, r, err)
		}
	}
}

// SignInData is returned by every endpoint that hands out a token pair.
type SignInData struct {
	AccessToken               string `json:"access_token"`
	RefreshToken              string `json:"refresh_token"`
	RequiresProfileCompletion bool   `json:"requiresProfileCompletion"`
}

// AccountData is returned by register and login.
type AccountData struct {
	User                      *domain.User `json:"user"`
	AccessToken               string       `json:"access_token"`
	RefreshToken              string       `json:"refresh_token"`
	RequiresProfileCompletion bool         `json:"requiresProfileCompletion"`
}

type UsernameAvailableData struct {
	Available bool `json:"available"`
}

func signInData(p jwtinfra.Pair, requiresProfile bool) SignInData {
	return SignInData{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, RequiresProfileCompletion: requiresProfile}
}
