package handler

import (
	"net/http"

	"github.com/go-bff-auth/internal/application/user"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/middleware"
	"github.com/go-bff-auth/internal/transport/http/response"
	"github.com/go-bff-auth/internal/transport/http/upload"
)

// UserHandler handles the /users endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) UsernameAvailable(w http.ResponseWriter, r *http.Request) error {
	p, _ := middleware.Valid[UsernameParams](r.Context())
	available, err := h.svc.IsUsernameAvailable(r.Context(), p.Username)
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "Username availablility checked successfully", UsernameAvailableData{Available: available})
	return nil
}

func (h *UserHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) error {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return apperr.Unauthorized("Please authenticate")
	}
	req, _ := middleware.Valid[UpdateDetailsRequest](r.Context())
	updated, err := h.svc.UpdateDetails(r.Context(), u, user.UpdateInput{
		Name:     req.Name,
		Username: req.Username,
		Avatar:   upload.File(r.Context(), "avatar"),
	})
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "User updated successfully", updated)
	return nil
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) error {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return apperr.Unauthorized("Please authenticate")
	}
	profile, err := h.svc.Profile(r.Context(), u)
	if err != nil {
		return err
	}
	response.Success(w, http.StatusOK, "User fetched successfully", profile)
	return nil
}
