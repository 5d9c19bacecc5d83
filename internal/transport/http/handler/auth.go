package handler

import (
	"net/http"

	"github.com/go-bff-auth/internal/application/auth"
	"github.com/go-bff-auth/internal/domain"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/middleware"
	"github.com/go-bff-auth/internal/transport/http/response"
	"github.com/go-bff-auth/internal/transport/http/upload"
)

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) SendVerification(w http.ResponseWriter, r *http.Request) error {
	req, _ := middleware.Valid[SendVerificationRequest](r.Context())
	if err := h.svc.SendVerification(r.Context(), req.Email); err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "Email verification sent successfully", nil)
	return nil
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) error {
	req, _ := middleware.Valid[VerifyEmailRequest](r.Context())
	res, err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	msg := "Email verified successfully"
	if res.RequiresProfileCompletion {
		msg = "Email verified successfully. Please complete your profile."
	}
	response.Success(w, http.StatusOK, msg, signInData(res.Tokens, res.RequiresProfileCompletion))
	return nil
}

func (h *AuthHandler) GoogleOAuth(w http.ResponseWriter, r *http.Request) error {
	req, _ := middleware.Valid[GoogleOAuthRequest](r.Context())
	res, err := h.svc.GoogleOAuth(r.Context(), req.IDToken)
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "Google authentication successfull",
		signInData(res.Tokens, res.RequiresProfileCompletion))
	return nil
}

func (h *AuthHandler) AppleOAuth(w http.ResponseWriter, r *http.Request) error {
	req, _ := middleware.Valid[AppleOAuthRequest](r.Context())
	res, err := h.svc.AppleOAuth(r.Context(), req.IDToken, req.FullName())
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "Apple authentication successfull",
		signInData(res.Tokens, res.RequiresProfileCompletion))
	return nil
}

func (h *AuthHandler) RefreshTokens(w http.ResponseWriter, r *http.Request) error {
	req, _ := middleware.Valid[RefreshTokenRequest](r.Context())
	res, err := h.svc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "Tokens refreshed successfully", res.Tokens)
	return nil
}

// Register creates the record for the authenticated identity with the route's
// user type.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) error {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return apperr.Unauthorized("Please authenticate")
	}
	req, _ := middleware.Valid[RegisterRequest](r.Context())
	res, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Identity: p.Claims.Identity,
		Type:     p.Type,
		Name:     req.Name,
		Username: req.Username,
		Avatar:   upload.File(r.Context(), "avatar"),
	})
	if err != nil {
		return err
	}
	msg := "User registered successfully"
	if res.User.Type == domain.UserTypeAdmin {
		msg = "Admin registered successfully"
	}
	response.Success(w, http.StatusCreated, msg, accountData(res))
	return nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return apperr.NotFound("User doesn't exist. Please create account")
	}
	res, err := h.svc.Login(r.Context(), u)
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "User logged in successfully", accountData(res))
	return nil
}

func accountData(res *auth.Result) AccountData {
	return AccountData{
		User:                      res.User,
		AccessToken:               res.Tokens.AccessToken,
		RefreshToken:              res.Tokens.RefreshToken,
		RequiresProfileCompletion: res.RequiresProfileCompletion,
	}
}
