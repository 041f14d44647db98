package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvAppPort  = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvAdminEmails = "STOREFRONT_ADMIN_EMAILS"

	EnvTaxRate            = "STOREFRONT_CHECKOUT_TAX_RATE"
	EnvCheckoutRateLimit  = "STOREFRONT_CHECKOUT_RATE_LIMIT"
	EnvWholesaleMinQty    = "STOREFRONT_WHOLESALE_MIN_LINE_QTY"
	EnvWholesaleThreshold = "STOREFRONT_WHOLESALE_VOLUME_THRESHOLD"
	EnvWholesaleRate      = "STOREFRONT_WHOLESALE_VOLUME_RATE"

	EnvLowStockThreshold = "STOREFRONT_LOW_STOCK_THRESHOLD"
	EnvCartRetentionDays = "STOREFRONT_CART_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
