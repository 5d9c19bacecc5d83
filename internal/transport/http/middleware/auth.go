package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-bff-auth/internal/domain"
	jwtinfra "github.com/go-bff-auth/internal/infrastructure/jwt"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/response"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is what Authenticate attaches to the request. User is nil only on
// registration routes, where Type is the route's user type.
type Principal struct {
	Claims *jwtinfra.Claims
	User   *domain.User
	Type   domain.UserType
}

// AccessVerifier checks self-issued access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*jwtinfra.Claims, error)
}

// UserResolver finds the user record a token refers to.
type UserResolver interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByIdentity(ctx context.Context, identity domain.Identity) (*domain.User, error)
}

type Authenticator struct {
	tokens AccessVerifier
	users  UserResolver
}

func NewAuthenticator(tokens AccessVerifier, users UserResolver) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// AuthOptions configures one route. An empty Allow admits every user type.
// Registration routes let a verified identity without a user record through;
// Allow must then name exactly the type being registered.
type AuthOptions struct {
	Allow        []domain.UserType
	Registration bool
}

// Authenticate verifies the Bearer access token, resolves the user and applies
// the role and account-state gates.
func (a *Authenticator) Authenticate(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.authenticate(r, opts)
			if err != nil {
				response.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func (a *Authenticator) authenticate(r *http.Request, opts AuthOptions) (*Principal, error) {
	authHeader := r.Header.Get("Authorization")
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if !strings.HasPrefix(authHeader, "Bearer ") || tokenStr == "" {
		return nil, apperr.BadRequest("Please authenticate")
	}

	claims, err := a.tokens.VerifyAccess(tokenStr)
	if errors.Is(err, jwtinfra.ErrExpired) {
		return nil, apperr.Wrap(domain.ErrUnauthorized, "Session is expired", err)
	}
	if err != nil {
		return nil, apperr.Wrap(domain.ErrUnauthorized, "Failed to authenticate", err)
	}
	if !claims.Bound() && !claims.Identity.EmailVerified {
		return nil, apperr.Unauthorized("Failed to authenticate")
	}

	u, err := a.resolve(r.Context(), claims)
	if err != nil {
		return nil, err
	}
	if u == nil {
		if opts.Registration && len(opts.Allow) == 1 {
			return &Principal{Claims: claims, Type: opts.Allow[0]}, nil
		}
		return nil, apperr.NotFound("User doesn't exist. Please create account")
	}

	if !roleAllowed(opts.Allow, u.Type) {
		return nil, apperr.Forbidden("Sorry, but you can't access this")
	}
	if err := apperr.CheckUserAccess(u); err != nil {
		return nil, err
	}
	return &Principal{Claims: claims, User: u, Type: u.Type}, nil
}

// resolve returns nil, nil when no record exists. Identity tokens look up by
// provider subject or verified email, so a record created after the token was
// minted is still found.
func (a *Authenticator) resolve(ctx context.Context, claims *jwtinfra.Claims) (*domain.User, error) {
	var (
		u   *domain.User
		err error
	)
	if claims.Bound() {
		u, err = a.users.Get(ctx, claims.UserID)
	} else {
		u, err = a.users.GetByIdentity(ctx, claims.Identity)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// UserFromContext returns the authenticated user record, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.User == nil {
		return nil, false
	}
	return p.User, true
}
