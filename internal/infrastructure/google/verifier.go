package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-bff-auth/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: strings.TrimSpace(clientID), validate: idtoken.Validate}
}

// Verify validates the Google ID token and returns the identity it proves.
// Returns a domain.ErrUnauthorized-wrapped error if the token is invalid.
func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	// idtoken skips the audience check for an empty audience.
	if v.clientID == "" {
		return domain.Identity{}, fmt.Errorf("google client id not configured: %w", domain.ErrUnauthorized)
	}
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid google token: %w: %w", domain.ErrUnauthorized, err)
	}
	email, _ := p.Claims["email"].(string)
	if p.Subject == "" || email == "" {
		return domain.Identity{}, fmt.Errorf("google token without subject or email: %w", domain.ErrUnauthorized)
	}
	emailVerified, _ := p.Claims["email_verified"].(bool)
	name, _ := p.Claims["name"].(string)
	picture, _ := p.Claims["picture"].(string)
	return domain.Identity{
		Email:         email,
		EmailVerified: emailVerified,
		Provider:      domain.ProviderGoogle,
		Subject:       p.Subject,
		Name:          name,
		Picture:       picture,
	}, nil
}
