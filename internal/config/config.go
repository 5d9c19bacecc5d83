package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvProduction = "production"

	StorageS3         = "s3"
	StorageCloudinary = "cloudinary"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"3000"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	AllowedOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// TrustProxy honours X-Forwarded-For and X-Real-Ip. Only enable it behind
	// a proxy that overwrites those headers.
	TrustProxy    bool  `env:"TRUST_PROXY" envDefault:"false"`
	JSONBodyLimit int64 `env:"JSON_BODY_LIMIT" envDefault:"16384"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	DynamoTables DynamoTables

	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH,required,notEmpty"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH,required,notEmpty"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"go-bff-auth"`
	AccessTokenTTL    time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	RefreshTokenTTL   time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"720h"`

	// An empty client ID disables that provider's sign-in route.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	AppleClientID  string `env:"APPLE_CLIENT_ID"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	VerificationCodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`

	AvatarStorage string `env:"AVATAR_STORAGE" envDefault:"s3"`
	S3BucketName  string `env:"S3_BUCKET_NAME"`
	S3Folder      string `env:"S3_FOLDER" envDefault:"profilePics"`
	Cloudinary    Cloudinary

	UploadTmpDir   string `env:"UPLOAD_TMP_DIR"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`

	AdminRegistrationSecret string `env:"ADMIN_REGISTRATION_SECRET"`

	RedisURL  string `env:"REDIS_URL"`
	SentryDSN string `env:"SENTRY_DSN"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users              string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	UserUniques        string `env:"DYNAMO_TABLE_USER_UNIQUES" envDefault:"user_uniques"`
	EmailVerifications string `env:"DYNAMO_TABLE_EMAIL_VERIFICATIONS" envDefault:"email_verifications"`
}

type Cloudinary struct {
	CloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey    string `env:"CLOUDINARY_API_KEY"`
	APISecret string `env:"CLOUDINARY_API_SECRET"`
	Folder    string `env:"CLOUDINARY_FOLDER" envDefault:"profilePics"`
}

// Load parses configuration from the environment and validates it.
// Callers load .env files beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the struct tags can't express.
func (c *Config) Validate() error {
	var errs []error
	switch c.AvatarStorage {
	case StorageS3:
		if c.S3BucketName == "" {
			errs = append(errs, errors.New("S3_BUCKET_NAME is required when AVATAR_STORAGE=s3"))
		}
	case StorageCloudinary:
		if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required when AVATAR_STORAGE=cloudinary"))
		}
	default:
		errs = append(errs, fmt.Errorf("AVATAR_STORAGE must be %q or %q, got %q", StorageS3, StorageCloudinary, c.AvatarStorage))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token expiries must be positive"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRY must not be shorter than JWT_ACCESS_EXPIRY"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if c.JSONBodyLimit <= 0 {
		errs = append(errs, errors.New("JSON_BODY_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) GoogleOAuthEnabled() bool { return strings.TrimSpace(c.GoogleClientID) != "" }

func (c *Config) AppleOAuthEnabled() bool { return strings.TrimSpace(c.AppleClientID) != "" }
