package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Pricing      PricingConfig
	Payout       PayoutConfig
	Gateway      GatewayConfig
	Webhook      WebhookConfig
	RateLimit    RateLimitConfig
	Reconcile    ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HAULMART_APP_ENV" required:"true"`
	Port         string `envconfig:"HAULMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HAULMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HAULMART_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"HAULMART_APP_PUBLIC_URL" default:"http://localhost:8080"`
	// CORSOrigins is comma separated; empty keeps the built-in storefront,
	// vendor and ops console origins.
	CORSOrigins []string `envconfig:"HAULMART_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HAULMART_DB_DSN"`
	Driver string `envconfig:"HAULMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HAULMART_DB_HOST"`
	LegacyPort     int    `envconfig:"HAULMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HAULMART_DB_USER"`
	LegacyPassword string `envconfig:"HAULMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"HAULMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"HAULMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HAULMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HAULMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HAULMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HAULMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"HAULMART_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HAULMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HAULMART_REDIS_ADDR"`
	Password     string        `envconfig:"HAULMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"HAULMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HAULMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HAULMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HAULMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HAULMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HAULMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HAULMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HAULMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HAULMART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"HAULMART_AUTO_MIGRATE" default:"false"`
	LowStockAlert bool `envconfig:"HAULMART_FEATURE_LOW_STOCK_ALERT" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HAULMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HAULMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HAULMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic     string `envconfig:"HAULMART_PUBSUB_DOMAIN_TOPIC" default:"haulmart-domain-events"`
	OrderedDelivery bool   `envconfig:"HAULMART_PUBSUB_ORDERED_DELIVERY" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HAULMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HAULMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HAULMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PricingConfig holds fee amounts in minor units and the percentages applied to them.
type PricingConfig struct {
	Currency               string          `envconfig:"HAULMART_PRICING_CURRENCY" default:"NGN"`
	BaseDeliveryFeeCents   int64           `envconfig:"HAULMART_PRICING_BASE_DELIVERY_FEE_CENTS" default:"50000"`
	PerKmFeeCents          int64           `envconfig:"HAULMART_PRICING_PER_KM_FEE_CENTS" default:"10000"`
	FreeDistanceKm         decimal.Decimal `envconfig:"HAULMART_PRICING_FREE_DISTANCE_KM" default:"3"`
	PerItemFeeCents        int64           `envconfig:"HAULMART_PRICING_PER_ITEM_FEE_CENTS" default:"5000"`
	FreeItemCount          int             `envconfig:"HAULMART_PRICING_FREE_ITEM_COUNT" default:"5"`
	MinimumDeliveryCents   int64           `envconfig:"HAULMART_PRICING_MIN_DELIVERY_FEE_CENTS" default:"50000"`
	DefaultDeliveryCents   int64           `envconfig:"HAULMART_PRICING_DEFAULT_DELIVERY_FEE_CENTS" default:"100000"`
	TaxPercent             decimal.Decimal `envconfig:"HAULMART_PRICING_TAX_PERCENT" default:"7.5"`
	DefaultCommission      decimal.Decimal `envconfig:"HAULMART_PRICING_DEFAULT_COMMISSION_PERCENT" default:"10"`
	LowStockAlertThreshold int             `envconfig:"HAULMART_PRICING_LOW_STOCK_THRESHOLD" default:"5"`
}

func (p PricingConfig) validate() error {
	hundred := decimal.NewFromInt(100)
	if p.TaxPercent.IsNegative() || p.TaxPercent.GreaterThan(hundred) {
		return fmt.Errorf("%s must be between 0 and 100", EnvPricingTaxPercent)
	}
	if p.DefaultCommission.IsNegative() || p.DefaultCommission.GreaterThan(hundred) {
		return fmt.Errorf("%s must be between 0 and 100", EnvPricingCommission)
	}
	if p.BaseDeliveryFeeCents < 0 || p.PerKmFeeCents < 0 || p.PerItemFeeCents < 0 {
		return fmt.Errorf("delivery fee components must not be negative")
	}
	return nil
}

type PayoutConfig struct {
	MinimumAmountCents int64 `envconfig:"HAULMART_PAYOUT_MINIMUM_CENTS" default:"100000"`
}

type GatewayConfig struct {
	BaseURL       string        `envconfig:"HAULMART_GATEWAY_BASE_URL" default:"https://api.flutterwave.com/v3"`
	SecretKey     string        `envconfig:"HAULMART_GATEWAY_SECRET_KEY"`
	WebhookSecret string        `envconfig:"HAULMART_GATEWAY_WEBHOOK_SECRET"`
	RedirectURL   string        `envconfig:"HAULMART_GATEWAY_REDIRECT_URL"`
	Timeout       time.Duration `envconfig:"HAULMART_GATEWAY_TIMEOUT" default:"15s"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"HAULMART_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// RateLimitConfig throttles the money-moving endpoints per client IP and per
// authenticated account.
type RateLimitConfig struct {
	Window    time.Duration `envconfig:"HAULMART_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit   int           `envconfig:"HAULMART_RATE_LIMIT_IP" default:"120"`
	UserLimit int           `envconfig:"HAULMART_RATE_LIMIT_USER" default:"30"`
}

// ReconcileConfig drives the reconciliation worker.
type ReconcileConfig struct {
	Tick                  time.Duration `envconfig:"HAULMART_RECONCILE_TICK" default:"1m"`
	LockTTL               time.Duration `envconfig:"HAULMART_RECONCILE_LOCK_TTL" default:"15m"`
	PaymentInterval       time.Duration `envconfig:"HAULMART_RECONCILE_PAYMENT_INTERVAL" default:"10m"`
	PaymentStaleAfter     time.Duration `envconfig:"HAULMART_RECONCILE_PAYMENT_STALE_AFTER" default:"15m"`
	PaymentMaxAge         time.Duration `envconfig:"HAULMART_RECONCILE_PAYMENT_MAX_AGE" default:"72h"`
	PaymentBatchSize      int           `envconfig:"HAULMART_RECONCILE_PAYMENT_BATCH_SIZE" default:"100"`
	OutboxRetentionDays   int           `envconfig:"HAULMART_RECONCILE_OUTBOX_RETENTION_DAYS" default:"30"`
	OutboxRetentionPeriod time.Duration `envconfig:"HAULMART_RECONCILE_OUTBOX_RETENTION_INTERVAL" default:"24h"`
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
