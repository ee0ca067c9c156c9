// Package config holds the process configuration for the NagoyaMeshi server.
// Values come from the environment (optionally seeded by a .env file) and are
// validated once at startup.
package config

import "time"

type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod test"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Billing  BillingConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	GinMode         string        `envconfig:"GIN_MODE" default:"debug" validate:"oneof=debug release test"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://127.0.0.1:5500"`
	TrustedProxies  []string      `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// Requests per minute allowed per client IP on login and register.
	AuthRateLimit float64 `envconfig:"AUTH_RATE_LIMIT" default:"10" validate:"gt=0"`
	AuthRateBurst int     `envconfig:"AUTH_RATE_BURST" default:"5" validate:"min=1"`
}

type DatabaseConfig struct {
	Driver          string        `envconfig:"DB_DRIVER" default:"mysql" validate:"oneof=mysql postgres sqlite"`
	DSN             string        `envconfig:"DB_DSN" validate:"required"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	LogQueries      bool          `envconfig:"DB_LOG_QUERIES" default:"false"`
}

type AuthConfig struct {
	JWTSecret    string        `envconfig:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	CookieName   string        `envconfig:"SESSION_COOKIE" default:"nagoyameshi_session"`
	CookieSecure bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
}

// BillingConfig holds the Stripe credentials and the single premium plan.
type BillingConfig struct {
	StripeSecretKey      string        `envconfig:"STRIPE_SECRET_KEY"`
	StripePublishableKey string        `envconfig:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret  string        `envconfig:"STRIPE_WEBHOOK_SECRET"`
	PlanName             string        `envconfig:"PREMIUM_PLAN_NAME" default:"premium_plan"`
	PriceID              string        `envconfig:"PREMIUM_PRICE_ID" default:"price_1QTekHP1x9xomPwVGawxXAOm"`
	MonthlyFee           int           `envconfig:"PREMIUM_MONTHLY_FEE" default:"300" validate:"min=0"`
	Timeout              time.Duration `envconfig:"STRIPE_TIMEOUT" default:"20s"`
}

// RedisConfig is optional. An empty address keeps token revocation in memory.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type StorageConfig struct {
	UploadDir  string `envconfig:"UPLOAD_DIR" default:"storage/app/public/restaurants"`
	PublicPath string `envconfig:"UPLOAD_PUBLIC_PATH" default:"/storage/restaurants"`
	MaxImageKB int64  `envconfig:"MAX_IMAGE_KB" default:"2048" validate:"min=1"`
}

type SeedConfig struct {
	Enabled       bool   `envconfig:"SEED" default:"true"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL" validate:"omitempty,email"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// BillingEnabled reports whether a Stripe secret key was supplied.
func (c *Config) BillingEnabled() bool {
	return c.Billing.StripeSecretKey != ""
}
