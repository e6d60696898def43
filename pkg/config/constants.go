package config

// EnvPrefix scopes every environment variable envconfig reads.
const EnvPrefix = "MOTORMARCHE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error text).
const (
	EnvAppEnv                 = "MOTORMARCHE_APP_ENV"
	EnvPort                   = "MOTORMARCHE_APP_PORT"
	EnvDBDSN                  = "MOTORMARCHE_DB_DSN"
	EnvDBHost                 = "MOTORMARCHE_DB_HOST"
	EnvDBUser                 = "MOTORMARCHE_DB_USER"
	EnvDBName                 = "MOTORMARCHE_DB_NAME"
	EnvRedisURL               = "MOTORMARCHE_REDIS_URL"
	EnvJWTSecret              = "MOTORMARCHE_JWT_SECRET"
	EnvJWTIssuer              = "MOTORMARCHE_JWT_ISSUER"
	EnvJWTExpMins             = "MOTORMARCHE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MOTORMARCHE_REFRESH_TOKEN_TTL_MINUTES"
	EnvBaseURL                = "MOTORMARCHE_BASE_URL"
	EnvStripeAPIKey           = "MOTORMARCHE_STRIPE_API_KEY"
	EnvStripeSecret           = "MOTORMARCHE_STRIPE_SECRET"
	EnvSendgridAPIKey         = "MOTORMARCHE_SENDGRID_API_KEY"
	EnvSendgridFrom           = "MOTORMARCHE_SENDGRID_FROM_EMAIL"
	EnvGCPProjectID           = "MOTORMARCHE_GCP_PROJECT_ID"
	EnvPubSubMailTopic        = "MOTORMARCHE_PUBSUB_MAIL_TOPIC"
	EnvPubSubMailSubscription = "MOTORMARCHE_PUBSUB_MAIL_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
