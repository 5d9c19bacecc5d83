package http

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-bff-auth/internal/config"
	"github.com/go-bff-auth/internal/domain"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-bff-auth/internal/transport/http/middleware"
	"github.com/go-bff-auth/internal/transport/http/response"
	"github.com/go-bff-auth/internal/transport/http/upload"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	response.SetProduction(cfg.IsProduction())

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestLogger(deps.Logger, cfg.IsProduction()))
	if cfg.SentryDSN != "" {
		r.Use(sentryhttp.New(sentryhttp.Options{}).Handle)
	}
	r.Use(appmiddleware.Recoverer)
	r.Use(appmiddleware.SecureHeaders(cfg.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.AdminSecretHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Compress(5))
	r.Use(appmiddleware.LimitJSONBody(cfg.JSONBodyLimit))
	r.Use(upload.Scope)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, apperr.NotFound("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.Envelope{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed",
		})
	})

	authn := deps.Authenticator
	sensitive := appmiddleware.RateLimit(deps.Limiter)
	avatar := appmiddleware.Upload(appmiddleware.UploadOptions{
		Field:    "avatar",
		Dir:      cfg.UploadTmpDir,
		MaxBytes: cfg.UploadMaxBytes,
		Allowed:  appmiddleware.ImageTypes,
	})
	body := func(v any) func(http.Handler) http.Handler {
		return appmiddleware.Validate(appmiddleware.Schema{Body: v})
	}

	healthH := handler.NewHealthHandler(deps.Health)
	authH := handler.NewAuthHandler(deps.Auth)
	userH := handler.NewUserHandler(deps.Users)

	r.With(appmiddleware.Validate(appmiddleware.Schema{Query: handler.HealthQuery{}})).Get("/health", healthH.Check)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// ── Public routes (no auth) ──────────────────────────────────────
			r.With(sensitive, body(handler.SendVerificationRequest{})).Post("/send-verification", handler.Wrap(authH.SendVerification))
			r.With(sensitive, body(handler.VerifyEmailRequest{})).Post("/verify-email", handler.Wrap(authH.VerifyEmail))
			if cfg.GoogleOAuthEnabled() {
				r.With(sensitive, body(handler.GoogleOAuthRequest{})).Post("/oauth/google", handler.Wrap(authH.GoogleOAuth))
			}
			if cfg.AppleOAuthEnabled() {
				r.With(sensitive, body(handler.AppleOAuthRequest{})).Post("/oauth/apple", handler.Wrap(authH.AppleOAuth))
			}
			r.With(body(handler.RefreshTokenRequest{})).Post("/refresh-tokens", handler.Wrap(authH.RefreshTokens))

			// ── Identity-token routes ────────────────────────────────────────
			r.With(
				authn.Authenticate(appmiddleware.AuthOptions{Allow: []domain.UserType{domain.UserTypeClient}, Registration: true}),
				avatar,
				body(handler.RegisterRequest{}),
			).Post("/register", handler.Wrap(authH.Register))

			if cfg.AdminRegistrationSecret != "" {
				r.With(
					appmiddleware.AdminSecret(cfg.AdminRegistrationSecret),
					authn.Authenticate(appmiddleware.AuthOptions{Allow: []domain.UserType{domain.UserTypeAdmin}, Registration: true}),
					body(handler.RegisterRequest{}),
				).Post("/admin-secret-register", handler.Wrap(authH.Register))
			}

			r.With(authn.Authenticate(appmiddleware.AuthOptions{})).Post("/login", handler.Wrap(authH.Login))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(appmiddleware.Validate(appmiddleware.Schema{Params: handler.UsernameParams{}})).
				Get("/username-available/{username}", handler.Wrap(userH.UsernameAvailable))

			r.Group(func(r chi.Router) {
				r.Use(authn.Authenticate(appmiddleware.AuthOptions{}))

				r.With(avatar, body(handler.UpdateDetailsRequest{})).Patch("/updateDetails", handler.Wrap(userH.UpdateDetails))
				r.Get("/me", handler.Wrap(userH.Me))
			})
		})
	})

	return r
}
