package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/getsentry/sentry-go"
	"github.com/go-bff-auth/internal/application/auth"
	"github.com/go-bff-auth/internal/application/health"
	"github.com/go-bff-auth/internal/application/user"
	"github.com/go-bff-auth/internal/config"
	"github.com/go-bff-auth/internal/infrastructure/apple"
	cloudinaryinfra "github.com/go-bff-auth/internal/infrastructure/cloudinary"
	"github.com/go-bff-auth/internal/infrastructure/dynamo"
	"github.com/go-bff-auth/internal/infrastructure/google"
	jwtinfra "github.com/go-bff-auth/internal/infrastructure/jwt"
	redisinfra "github.com/go-bff-auth/internal/infrastructure/redis"
	s3infra "github.com/go-bff-auth/internal/infrastructure/s3"
	"github.com/go-bff-auth/internal/infrastructure/smtp"
	transporthttp "github.com/go-bff-auth/internal/transport/http"
	appmiddleware "github.com/go-bff-auth/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return err
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.UserUniques)
	verificationRepo := dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.EmailVerifications)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return err
	}
	if !cfg.GoogleOAuthEnabled() {
		logger.Warn("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}
	if !cfg.AppleOAuthEnabled() {
		logger.Warn("APPLE_CLIENT_ID not set, apple sign-in disabled")
	}
	if cfg.TrustProxy {
		logger.Info("trusting forwarding headers for client IPs")
	}
	appleVerifier, err := apple.NewVerifier(ctx, cfg.AppleClientID)
	if err != nil {
		return err
	}
	avatars, err := newAvatarStore(cfg, awsCfg)
	if err != nil {
		return err
	}
	limiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}

	deps := &transporthttp.Deps{
		Auth: auth.NewService(auth.Deps{
			Users:         userRepo,
			Verifications: verificationRepo,
			Tokens:        jwtProvider,
			Google:        google.NewVerifier(cfg.GoogleClientID),
			Apple:         appleVerifier,
			Avatars:       avatars,
			Mailer:        smtp.NewMailer(cfg),
			CodeTTL:       cfg.VerificationCodeTTL,
		}),
		Users:         user.NewService(userRepo, avatars),
		Health:        health.NewService(dynamo.NewPinger(dynamoClient, cfg.DynamoTables.Users), "dynamodb", cfg.AppEnv),
		Authenticator: appmiddleware.NewAuthenticator(jwtProvider, userRepo),
		Limiter:       limiter,
		Logger:        logger,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func newAvatarStore(cfg *config.Config, awsCfg aws.Config) (auth.AvatarStore, error) {
	switch cfg.AvatarStorage {
	case config.StorageCloudinary:
		api, err := cloudinaryinfra.NewUploadAPI(cfg.Cloudinary)
		if err != nil {
			return nil, err
		}
		return cloudinaryinfra.NewAvatarStore(api, cfg.Cloudinary.Folder), nil
	default:
		return s3infra.NewAvatarStore(s3infra.NewClient(awsCfg, cfg), cfg), nil
	}
}

// newLimiter shares counters through Redis when configured, otherwise each
// instance keeps its own token buckets.
func newLimiter(ctx context.Context, cfg *config.Config) (appmiddleware.Limiter, error) {
	if cfg.RedisURL == "" {
		return appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10), nil
	}
	rdb, err := redisinfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = rdb.Close()
	}()
	return redisinfra.NewLimiter(rdb, "ratelimit:auth", 20, time.Minute), nil
}
