package http

import (
	"log/slog"

	"github.com/go-bff-auth/internal/application/auth"
	"github.com/go-bff-auth/internal/application/health"
	"github.com/go-bff-auth/internal/application/user"
	appmiddleware "github.com/go-bff-auth/internal/transport/http/middleware"
)

// Deps holds the services and shared middleware the router wires together.
type Deps struct {
	Auth          auth.Service
	Users         user.Service
	Health        health.Service
	Authenticator *appmiddleware.Authenticator
	// Limiter guards the unauthenticated sign-in routes.
	Limiter appmiddleware.Limiter
	Logger  *slog.Logger
}
