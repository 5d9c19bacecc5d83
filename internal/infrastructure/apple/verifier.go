package apple

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-bff-auth/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	keysURL = "https://appleid.apple.com/auth/keys"
	issuer  = "https://appleid.apple.com"

	// PrivateRelayDomain is used to synthesise an address when Apple withholds the email.
	PrivateRelayDomain = "privaterelay.appleid.com"
)

// Verifier validates Apple ID tokens against Apple's published JWKS.
// The key set is cached and refreshed in the background.
type Verifier struct {
	clientID string
	keys     func(ctx context.Context) (jwk.Set, error)
}

// NewVerifier registers Apple's JWKS endpoint with a refreshing cache bound to ctx.
func NewVerifier(ctx context.Context, clientID string) (*Verifier, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(keysURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("register apple jwks: %w", err)
	}
	return &Verifier{
		clientID: strings.TrimSpace(clientID),
		keys: func(ctx context.Context) (jwk.Set, error) {
			return cache.Get(ctx, keysURL)
		},
	}, nil
}

// Verify validates signature, issuer, audience and expiry of the token.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid.
func (v *Verifier) Verify(ctx context.Context, idToken string) (domain.Identity, error) {
	if v.clientID == "" {
		return domain.Identity{}, fmt.Errorf("apple client id not configured: %w", domain.ErrUnauthorized)
	}
	set, err := v.keys(ctx)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("fetch apple jwks: %w", err)
	}
	t, err := jwt.ParseString(idToken,
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(v.clientID),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid apple token: %w: %w", domain.ErrUnauthorized, err)
	}
	sub := t.Subject()
	if sub == "" {
		return domain.Identity{}, fmt.Errorf("apple token without subject: %w", domain.ErrUnauthorized)
	}
	email, _ := t.Get("email")
	ev, _ := t.Get("email_verified")

	id := domain.Identity{
		Email:         strings.ToLower(str(email)),
		EmailVerified: boolVal(ev),
		Provider:      domain.ProviderApple,
		Subject:       sub,
	}
	return id, nil
}

// RelayEmail is the fallback address for an Apple subject without an email.
func RelayEmail(sub string) string {
	return strings.ToLower(sub) + "@" + PrivateRelayDomain
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Apple sends email_verified as either a bool or the string "true".
func boolVal(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if s, ok := v.(string); ok {
		return s == "true"
	}
	return false
}
