package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Orders       OrdersConfig
	Dropi        DropiConfig
	CatalogSync  CatalogSyncConfig
	Payments     PaymentsConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Storage      StorageConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"TIENDA_APP_ENV" required:"true"`
	Port         string `envconfig:"TIENDA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIENDA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIENDA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIENDA_DB_DSN"`
	Driver string `envconfig:"TIENDA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TIENDA_DB_HOST"`
	LegacyPort     int    `envconfig:"TIENDA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TIENDA_DB_USER"`
	LegacyPassword string `envconfig:"TIENDA_DB_PASSWORD"`
	LegacyName     string `envconfig:"TIENDA_DB_NAME"`
	LegacySSLMode  string `envconfig:"TIENDA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIENDA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIENDA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIENDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIENDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIENDA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIENDA_REDIS_ADDR"`
	Password     string        `envconfig:"TIENDA_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIENDA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIENDA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIENDA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIENDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIENDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIENDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TIENDA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TIENDA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TIENDA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type OrdersConfig struct {
	// DefaultStatus is the business status applied whenever a creation or
	// update payload omits or blanks the status. Deployment-specific:
	// "pending" for the cash-first storefront, "paid" for the prepaid one.
	DefaultStatus         string `envconfig:"TIENDA_ORDERS_DEFAULT_STATUS" default:"pending"`
	AdminToken            string `envconfig:"TIENDA_ORDERS_ADMIN_TOKEN"`
	FreeShippingThreshold int64  `envconfig:"TIENDA_FREE_SHIPPING_THRESHOLD" default:"0"`
}

type DropiConfig struct {
	BaseURL       string        `envconfig:"TIENDA_DROPI_BASE_URL"`
	APIKey        string        `envconfig:"TIENDA_DROPI_API_KEY"`
	WebhookSecret string        `envconfig:"TIENDA_DROPI_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"TIENDA_DROPI_TIMEOUT" default:"30s"`
	MaxRetries    int           `envconfig:"TIENDA_DROPI_MAX_RETRIES" default:"2"`
}

type CatalogSyncConfig struct {
	Enabled         bool          `envconfig:"TIENDA_CATALOG_SYNC_ENABLED" default:"false"`
	Interval        time.Duration `envconfig:"TIENDA_CATALOG_SYNC_INTERVAL" default:"6h"`
	ItemDelay       time.Duration `envconfig:"TIENDA_CATALOG_SYNC_ITEM_DELAY" default:"500ms"`
	MarkdownPercent int           `envconfig:"TIENDA_CATALOG_MARKDOWN_PERCENT" default:"10"`
	TriggerToken    string        `envconfig:"TIENDA_CATALOG_SYNC_TOKEN"`
}

type PaymentsConfig struct {
	SessionTTL time.Duration `envconfig:"TIENDA_PAYMENT_SESSION_TTL" default:"10m"`
	// DevMode allows the explicit status-update endpoint used to simulate
	// Nequi confirmations. Must stay off in production.
	DevMode bool `envconfig:"TIENDA_PAYMENTS_DEV_MODE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"TIENDA_STRIPE_API_KEY"`
	Secret string `envconfig:"TIENDA_STRIPE_SECRET"`
	Env    string `envconfig:"TIENDA_STRIPE_ENV" default:"test"`
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
	APIKey      string `envconfig:"TIENDA_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"TIENDA_SENDGRID_FROM_EMAIL"`
}

type StorageConfig struct {
	BucketName string `envconfig:"TIENDA_GCS_BUCKET_NAME"`
	PublicBase string `envconfig:"TIENDA_GCS_PUBLIC_BASE"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TIENDA_AUTO_MIGRATE" default:"false"`
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
