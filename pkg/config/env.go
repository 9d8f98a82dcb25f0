package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "HAULMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "HAULMART_APP_ENV"
	EnvPort         = "HAULMART_APP_PORT"
	EnvLogLevel     = "HAULMART_LOG_LEVEL"
	EnvLogWarnStack = "HAULMART_LOG_WARN_STACK"

	EnvDBDSN  = "HAULMART_DB_DSN"
	EnvDBHost = "HAULMART_DB_HOST"
	EnvDBUser = "HAULMART_DB_USER"
	EnvDBName = "HAULMART_DB_NAME"

	EnvRedisURL = "HAULMART_REDIS_URL"

	EnvJWTSecret  = "HAULMART_JWT_SECRET"
	EnvJWTIssuer  = "HAULMART_JWT_ISSUER"
	EnvJWTExpMins = "HAULMART_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID      = "HAULMART_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "HAULMART_PUBSUB_DOMAIN_TOPIC"

	EnvPricingTaxPercent = "HAULMART_PRICING_TAX_PERCENT"
	EnvPricingCommission = "HAULMART_PRICING_DEFAULT_COMMISSION_PERCENT"

	EnvPayoutMinimum = "HAULMART_PAYOUT_MINIMUM_CENTS"

	EnvGatewaySecretKey     = "HAULMART_GATEWAY_SECRET_KEY"
	EnvGatewayWebhookSecret = "HAULMART_GATEWAY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
