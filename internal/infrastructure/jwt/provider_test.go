package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-bff-auth/internal/config"
	"github.com/go-bff-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()

	privPath := filepath.Join(dir, "private.pem")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))
	return privPath, pubPath
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	priv, pub := writeKeys(t)
	p, err := NewProvider(&config.Config{
		JWTPrivateKeyPath: priv,
		JWTPublicKeyPath:  pub,
		JWTIssuer:         "test",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   720 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

var testIdentity = domain.Identity{Email: "a@b.com", EmailVerified: true, Provider: domain.ProviderEmail}

func TestProvider_UserPairRoundTrip(t *testing.T) {
	p := newTestProvider(t)
	u := domain.NewUser("01HX", "a@b.com", domain.UserTypeAdmin, time.Now())

	pair, err := p.IssuePair(testIdentity, u)
	require.NoError(t, err)

	claims, err := p.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.Bound())
	assert.Equal(t, "01HX", claims.UserID)
	assert.Equal(t, domain.UserTypeAdmin, claims.UserType)
	assert.Equal(t, testIdentity, claims.Identity)

	claims, err = p.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, claims.TokenType)
}

func TestProvider_IdentityPairIsUnbound(t *testing.T) {
	p := newTestProvider(t)

	pair, err := p.IssuePair(testIdentity, nil)
	require.NoError(t, err)

	claims, err := p.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, claims.Bound())
	assert.Equal(t, "a@b.com", claims.Identity.Email)
}

func TestProvider_TypesAreNotInterchangeable(t *testing.T) {
	p := newTestProvider(t)
	pair, err := p.IssuePair(testIdentity, nil)
	require.NoError(t, err)

	_, err = p.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = p.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestProvider_Expired(t *testing.T) {
	p := newTestProvider(t)
	issued := time.Now().Add(-time.Hour)
	p.now = func() time.Time { return issued }
	pair, err := p.IssuePair(testIdentity, nil)
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = p.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err, "refresh tokens outlive access tokens")
}

func TestProvider_RejectsForeignSignature(t *testing.T) {
	p := newTestProvider(t)
	other := newTestProvider(t)
	pair, err := other.IssuePair(testIdentity, nil)
	require.NoError(t, err)

	_, err = p.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestProvider_RejectsGarbage(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.VerifyAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/nonexistent/key.pem"})
	assert.ErrorContains(t, err, "read private key")
}
