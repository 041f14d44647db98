package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Config is loaded once at startup and passed by pointer to constructors. Nothing in the
// codebase mutates it after Load returns.
type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	Checkout     CheckoutConfig
	Wholesale    WholesaleConfig
	FeatureFlags FeatureFlagsConfig
	Metrics      MetricsConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Admin.normalize()
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
	// Audience, when set, must appear in the aud claim of every access token.
	Audience string `envconfig:"STOREFRONT_JWT_AUDIENCE"`
}

// AdminConfig holds the admin credential list. Membership is checked against the
// email claim of the access token.
type AdminConfig struct {
	Emails []string `envconfig:"STOREFRONT_ADMIN_EMAILS"`
}

// IsAdmin reports whether email belongs to the configured admin list.
func (a AdminConfig) IsAdmin(email string) bool {
	needle := strings.ToLower(strings.TrimSpace(email))
	if needle == "" {
		return false
	}
	for _, candidate := range a.Emails {
		if candidate == needle {
			return true
		}
	}
	return false
}

func (a *AdminConfig) normalize() {
	cleaned := make([]string, 0, len(a.Emails))
	for _, email := range a.Emails {
		if v := strings.ToLower(strings.TrimSpace(email)); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	a.Emails = cleaned
}

type CheckoutConfig struct {
	TaxRate  decimal.Decimal `envconfig:"STOREFRONT_CHECKOUT_TAX_RATE" default:"0.08"`
	Currency string          `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"USD"`

	// Per-user checkout attempts allowed in RateLimitWindow; zero disables the limit.
	RateLimit       int           `envconfig:"STOREFRONT_CHECKOUT_RATE_LIMIT" default:"10"`
	RateLimitWindow time.Duration `envconfig:"STOREFRONT_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
}

type WholesaleConfig struct {
	MinLineQuantity         int             `envconfig:"STOREFRONT_WHOLESALE_MIN_LINE_QTY" default:"3"`
	VolumeDiscountThreshold int64           `envconfig:"STOREFRONT_WHOLESALE_VOLUME_THRESHOLD" default:"10000"`
	VolumeDiscountRate      decimal.Decimal `envconfig:"STOREFRONT_WHOLESALE_VOLUME_RATE" default:"0.10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// MaintenanceConfig drives the maintenance worker. A zero CartRetentionDays keeps carts forever.
type MaintenanceConfig struct {
	Interval          time.Duration `envconfig:"STOREFRONT_MAINTENANCE_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"STOREFRONT_MAINTENANCE_LOCK_TTL" default:"55m"`
	LowStockThreshold int           `envconfig:"STOREFRONT_LOW_STOCK_THRESHOLD" default:"5"`
	CartRetentionDays int           `envconfig:"STOREFRONT_CART_RETENTION_DAYS" default:"0"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
	// WorkerAddr is where the maintenance worker serves /metrics.
	WorkerAddr string `envconfig:"STOREFRONT_METRICS_WORKER_ADDR" default:":9091"`
}

func (c *Config) validate() error {
	var err error
	if c.Checkout.TaxRate.IsNegative() || c.Checkout.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		err = multierr.Append(err, fmt.Errorf("%s must be in [0, 1)", EnvTaxRate))
	}
	if c.Wholesale.MinLineQuantity < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvWholesaleMinQty))
	}
	if c.Wholesale.VolumeDiscountThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvWholesaleThreshold))
	}
	if c.Wholesale.VolumeDiscountRate.IsNegative() || c.Wholesale.VolumeDiscountRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		err = multierr.Append(err, fmt.Errorf("%s must be in [0, 1)", EnvWholesaleRate))
	}
	if c.Checkout.RateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvCheckoutRateLimit))
	}
	if c.Maintenance.LowStockThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvLowStockThreshold))
	}
	if c.Maintenance.CartRetentionDays < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvCartRetentionDays))
	}
	if !c.DB.IsSQLite() && !strings.EqualFold(c.DB.Driver, DBDriverPostgres) {
		err = multierr.Append(err, fmt.Errorf("unsupported %s %q", EnvDBDriver, c.DB.Driver))
	}
	return err
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
