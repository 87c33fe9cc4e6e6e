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
	Checkout      CheckoutConfig
	PayMongo      PayMongoConfig
	PayPal        PayPalConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"TAHANAN_APP_ENV" required:"true"`
	Port         string `envconfig:"TAHANAN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TAHANAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TAHANAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TAHANAN_DB_DSN"`
	Driver string `envconfig:"TAHANAN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TAHANAN_DB_HOST"`
	LegacyPort     int    `envconfig:"TAHANAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAHANAN_DB_USER"`
	LegacyPassword string `envconfig:"TAHANAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAHANAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAHANAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAHANAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAHANAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAHANAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAHANAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAHANAN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TAHANAN_REDIS_ADDR"`
	Password     string        `envconfig:"TAHANAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAHANAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAHANAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAHANAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAHANAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAHANAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAHANAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig carries the pricing constants shared by session creation and
// webhook reconciliation.
type CheckoutConfig struct {
	ReservationFeeCents int    `envconfig:"TAHANAN_CHECKOUT_RESERVATION_FEE_CENTS" default:"50000"`
	Currency            string `envconfig:"TAHANAN_CHECKOUT_CURRENCY" default:"PHP"`
	// PHPPerUSD converts centavo totals into USD for the PayPal order flow.
	PHPPerUSD string `envconfig:"TAHANAN_CHECKOUT_PHP_PER_USD" default:"58.00"`
}

type PayMongoConfig struct {
	SecretKey     string `envconfig:"TAHANAN_PAYMONGO_SECRET_KEY"`
	WebhookSecret string `envconfig:"TAHANAN_PAYMONGO_WEBHOOK_SECRET"`
	BaseURL       string `envconfig:"TAHANAN_PAYMONGO_BASE_URL" default:"https://api.paymongo.com"`
}

type PayPalConfig struct {
	ClientID     string `envconfig:"TAHANAN_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"TAHANAN_PAYPAL_CLIENT_SECRET"`
	BaseURL      string `envconfig:"TAHANAN_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
}

type NotificationsConfig struct {
	ProjectID string `envconfig:"TAHANAN_GCP_PROJECT_ID"`
	Topic     string `envconfig:"TAHANAN_PUBSUB_FULFILLMENT_TOPIC" default:"tahanan-fulfillment-events"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TAHANAN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TAHANAN_AUTO_MIGRATE" default:"false"`
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
