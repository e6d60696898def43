package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Stripe        StripeConfig
	Sendgrid      SendgridConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Webhook       WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOTORMARCHE_APP_ENV" required:"true"`
	Port         string `envconfig:"MOTORMARCHE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOTORMARCHE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOTORMARCHE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MOTORMARCHE_DB_DSN"`
	Driver string `envconfig:"MOTORMARCHE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOTORMARCHE_DB_HOST"`
	LegacyPort     int    `envconfig:"MOTORMARCHE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOTORMARCHE_DB_USER"`
	LegacyPassword string `envconfig:"MOTORMARCHE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOTORMARCHE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOTORMARCHE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOTORMARCHE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOTORMARCHE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOTORMARCHE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOTORMARCHE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTORMARCHE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOTORMARCHE_REDIS_ADDR"`
	Password     string        `envconfig:"MOTORMARCHE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTORMARCHE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTORMARCHE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTORMARCHE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTORMARCHE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTORMARCHE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTORMARCHE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MOTORMARCHE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MOTORMARCHE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MOTORMARCHE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MOTORMARCHE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MOTORMARCHE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MOTORMARCHE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MOTORMARCHE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MOTORMARCHE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MOTORMARCHE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MOTORMARCHE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MOTORMARCHE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MOTORMARCHE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MOTORMARCHE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MOTORMARCHE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MOTORMARCHE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOTORMARCHE_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig carries the storefront URLs Stripe redirects back to.
type CheckoutConfig struct {
	BaseURL    string `envconfig:"MOTORMARCHE_BASE_URL" required:"true"`
	SuccessURL string `envconfig:"MOTORMARCHE_CHECKOUT_SUCCESS_PATH" default:"/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL  string `envconfig:"MOTORMARCHE_CHECKOUT_CANCEL_PATH" default:"/cancel"`
}

type StripeConfig struct {
	APIKey string `envconfig:"MOTORMARCHE_STRIPE_API_KEY"`
	Secret string `envconfig:"MOTORMARCHE_STRIPE_SECRET"`
	Env    string `envconfig:"MOTORMARCHE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"MOTORMARCHE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"MOTORMARCHE_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"MOTORMARCHE_SENDGRID_FROM_NAME" default:"MotorMarche"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MOTORMARCHE_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	MailTopic        string `envconfig:"MOTORMARCHE_PUBSUB_MAIL_TOPIC" default:"mm-mail-events"`
	MailSubscription string `envconfig:"MOTORMARCHE_PUBSUB_MAIL_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"MOTORMARCHE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"MOTORMARCHE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MOTORMARCHE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"MOTORMARCHE_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MOTORMARCHE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
