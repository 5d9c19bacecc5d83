package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/go-bff-auth/internal/domain"
	"github.com/go-bff-auth/internal/infrastructure/apple"
	"github.com/go-bff-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-bff-auth/internal/infrastructure/jwt"
	"github.com/go-bff-auth/internal/infrastructure/smtp"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidCode     = "Invalid or expired verification code"
	msgTooManyAttempts = "Too many failed attempts. Please request a new code"
	msgRefreshInvalid  = "Refresh token is invalid or expired. Please login again"
	msgUnverifiedEmail = "Email is not verified with the provider"
)

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	GetByAppleSub(ctx context.Context, sub string) (*domain.User, error)
	GetByIdentity(ctx context.Context, identity domain.Identity) (*domain.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type VerificationStore interface {
	Put(ctx context.Context, v *domain.EmailVerification) error
	Get(ctx context.Context, email string) (*domain.EmailVerification, error)
	Delete(ctx context.Context, email string) error
	Consume(ctx context.Context, email, codeHash string) error
	RecordFailure(ctx context.Context, email, codeHash string) (int, error)
}

type TokenIssuer interface {
	IssuePair(identity domain.Identity, user *domain.User) (jwtinfra.Pair, error)
	VerifyRefresh(token string) (*jwtinfra.Claims, error)
}

// IdentityVerifier checks a third-party ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

type AvatarStore interface {
	Upload(ctx context.Context, localPath, contentType string) (domain.Avatar, error)
	Delete(ctx context.Context, id string) error
}

// Result is what every sign-in path returns. User is nil for identity pairs.
type Result struct {
	Tokens                    jwtinfra.Pair
	User                      *domain.User
	RequiresProfileCompletion bool
}

type RegisterInput struct {
	Identity domain.Identity
	Type     domain.UserType
	Name     string
	Username string
	Avatar   *domain.FileUpload
}

type Service interface {
	SendVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) (*Result, error)
	GoogleOAuth(ctx context.Context, idToken string) (*Result, error)
	AppleOAuth(ctx context.Context, idToken, name string) (*Result, error)
	Register(ctx context.Context, in RegisterInput) (*Result, error)
	Login(ctx context.Context, u *domain.User) (*Result, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Result, error)
}

type Deps struct {
	Users         UserStore
	Verifications VerificationStore
	Tokens        TokenIssuer
	Google        IdentityVerifier
	Apple         IdentityVerifier
	Avatars       AvatarStore
	Mailer        smtp.Mailer
	CodeTTL       time.Duration
}

type service struct {
	Deps
	now      func() time.Time
	hashCost int
}

func NewService(d Deps) Service {
	if d.CodeTTL <= 0 {
		d.CodeTTL = 10 * time.Minute
	}
	return &service{Deps: d, now: time.Now, hashCost: bcrypt.DefaultCost}
}

// NormalizeEmail lower-cases and trims an address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) SendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	now := s.now()
	v := &domain.EmailVerification{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.CodeTTL).Unix(),
		CreatedAt: now.UTC(),
	}
	if err := s.Verifications.Put(ctx, v); err != nil {
		return err
	}
	body, err := smtp.VerificationEmail(code, int(s.CodeTTL.Minutes()))
	if err != nil {
		return err
	}
	return s.Mailer.SendHTML(ctx, email, "Email Verification Code", body)
}

func (s *service) VerifyEmail(ctx context.Context, email, code string) (*Result, error) {
	email = NormalizeEmail(email)
	v, err := s.Verifications.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperr.BadRequest(msgInvalidCode)
	}
	if err != nil {
		return nil, err
	}
	if v.Expired(s.now()) {
		s.discardCode(ctx, email)
		return nil, apperr.BadRequest(msgInvalidCode)
	}
	if v.Attempts >= domain.MaxVerificationAttempts {
		s.discardCode(ctx, email)
		return nil, apperr.BadRequest(msgTooManyAttempts)
	}
	if bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(code)) != nil {
		return nil, s.wrongCode(ctx, email, v.CodeHash)
	}
	// Single use: the code is gone before any token is issued, and only one
	// request can take it.
	if err := s.Verifications.Consume(ctx, email, v.CodeHash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.BadRequest(msgInvalidCode)
		}
		return nil, err
	}

	identity := domain.Identity{Email: email, EmailVerified: true, Provider: domain.ProviderEmail}
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return s.identityResult(identity)
	}
	if err != nil {
		return nil, err
	}
	if err := apperr.CheckUserAccess(u); err != nil {
		return nil, err
	}
	if !u.IsEmailVerified {
		if err := s.Users.Update(ctx, u.UserID, map[string]any{dynamo.FieldEmailVerified: true}); err != nil {
			return nil, err
		}
		u.IsEmailVerified = true
	}
	return s.userResult(identity, u)
}

// wrongCode counts a failed guess and drops the code once the limit is hit.
func (s *service) wrongCode(ctx context.Context, email, codeHash string) error {
	n, err := s.Verifications.RecordFailure(ctx, email, codeHash)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.BadRequest(msgInvalidCode)
	case err != nil:
		return err
	case n >= domain.MaxVerificationAttempts:
		s.discardCode(ctx, email)
		return apperr.BadRequest(msgTooManyAttempts)
	}
	return apperr.BadRequest(msgInvalidCode)
}

func (s *service) discardCode(ctx context.Context, email string) {
	if err := s.Verifications.Delete(ctx, email); err != nil {
		slog.Warn("could not delete verification", "email", email, "err", err)
	}
}

func (s *service) GoogleOAuth(ctx context.Context, idToken string) (*Result, error) {
	identity, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		return nil, apperr.Wrap(domain.ErrUnauthorized, "Invalid Google token", err)
	}
	identity.Email = NormalizeEmail(identity.Email)
	return s.oauth(ctx, identity, s.Users.GetByGoogleSub)
}

func (s *service) AppleOAuth(ctx context.Context, idToken, name string) (*Result, error) {
	identity, err := s.Apple.Verify(ctx, idToken)
	if err != nil {
		return nil, apperr.Wrap(domain.ErrUnauthorized, "Invalid Apple token", err)
	}
	if identity.Email == "" {
		// The relay address is derived from the subject, so only this
		// Apple account can ever present it.
		identity.Email = apple.RelayEmail(identity.Subject)
		identity.EmailVerified = true
	}
	identity.Email = NormalizeEmail(identity.Email)
	identity.Name = strings.TrimSpace(name)
	return s.oauth(ctx, identity, s.Users.GetByAppleSub)
}

// oauth resolves the user by provider subject, then by email, and links the
// provider on the way. Without a user the caller gets an identity pair. An
// email the provider has not verified is never linked and never registers.
func (s *service) oauth(ctx context.Context, identity domain.Identity, bySub func(context.Context, string) (*domain.User, error)) (*Result, error) {
	u, err := bySub(ctx, identity.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		if !identity.EmailVerified {
			return nil, apperr.Unauthorized(msgUnverifiedEmail)
		}
		u, err = s.Users.GetByEmail(ctx, identity.Email)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return s.identityResult(identity)
	}
	if err != nil {
		return nil, err
	}
	if err := apperr.CheckUserAccess(u); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if u.LinkProvider(identity.Provider, identity.Subject, identity.Email) {
		updates[dynamo.FieldProviders] = u.Providers
		switch identity.Provider {
		case domain.ProviderGoogle:
			updates[dynamo.FieldGoogleSub] = u.GoogleSub
		case domain.ProviderApple:
			updates[dynamo.FieldAppleSub] = u.AppleSub
		}
	}
	if identity.EmailVerified && !u.IsEmailVerified {
		u.IsEmailVerified = true
		updates[dynamo.FieldEmailVerified] = true
	}
	if len(updates) > 0 {
		if err := s.Users.Update(ctx, u.UserID, updates); err != nil {
			return nil, err
		}
	}
	return s.userResult(identity, u)
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	if !in.Type.Valid() {
		return nil, apperr.BadRequest("Invalid user type")
	}
	email := NormalizeEmail(in.Identity.Email)
	if email == "" || !in.Identity.EmailVerified {
		return nil, apperr.Unauthorized("Verified email is required to register")
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("User already exists. Please login")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	taken, err := s.Users.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Username is already taken")
	}

	var avatar *domain.Avatar
	if in.Avatar != nil {
		a, err := s.Avatars.Upload(ctx, in.Avatar.Path, in.Avatar.ContentType)
		if err != nil {
			return nil, apperr.Wrap(domain.ErrUpload, "Failed to upload avatar", err)
		}
		avatar = &a
	} else if in.Identity.Picture != "" {
		avatar = &domain.Avatar{URL: in.Identity.Picture}
	}

	u := domain.NewUser(id.New(), email, in.Type, s.now().UTC())
	u.Name = strings.TrimSpace(in.Name)
	u.Username = in.Username
	u.Avatar = avatar
	u.IsEmailVerified = in.Identity.EmailVerified
	u.SignInProvider = in.Identity.Provider
	u.LinkProvider(in.Identity.Provider, in.Identity.Subject, email)
	u.SyncProfileComplete()

	if err := s.Users.Create(ctx, u); err != nil {
		if avatar != nil && avatar.ID != "" {
			if derr := s.Avatars.Delete(ctx, avatar.ID); derr != nil {
				slog.Warn("could not delete orphaned avatar", "avatar_id", avatar.ID, "err", derr)
			}
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperr.Conflict("Username or email is already taken")
		}
		return nil, err
	}
	return s.userResult(in.Identity, u)
}

// Login hands back the resolved user with a pair bound to it, so a client
// holding an identity pair can upgrade once its account exists.
func (s *service) Login(_ context.Context, u *domain.User) (*Result, error) {
	identity := domain.Identity{Email: u.Email, EmailVerified: u.IsEmailVerified, Provider: u.SignInProvider}
	return s.userResult(identity, u)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*Result, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Wrap(domain.ErrUnauthorized, msgRefreshInvalid, err)
	}
	var u *domain.User
	if claims.Bound() {
		u, err = s.Users.Get(ctx, claims.UserID)
	} else {
		u, err = s.Users.GetByIdentity(ctx, claims.Identity)
	}
	switch {
	case errors.Is(err, domain.ErrNotFound) && !claims.Bound() && claims.Identity.EmailVerified:
		return s.identityResult(claims.Identity)
	case errors.Is(err, domain.ErrNotFound):
		return nil, apperr.Unauthorized(msgRefreshInvalid)
	case err != nil:
		return nil, err
	}
	if err := apperr.CheckUserAccess(u); err != nil {
		return nil, err
	}
	return s.userResult(claims.Identity, u)
}

func (s *service) identityResult(identity domain.Identity) (*Result, error) {
	pair, err := s.Tokens.IssuePair(identity, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Tokens: pair, RequiresProfileCompletion: true}, nil
}

func (s *service) userResult(identity domain.Identity, u *domain.User) (*Result, error) {
	pair, err := s.Tokens.IssuePair(identity, u)
	if err != nil {
		return nil, err
	}
	return &Result{Tokens: pair, User: u, RequiresProfileCompletion: !u.ProfileComplete()}, nil
}

// generateCode returns a uniformly random six digit code without a leading zero.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
