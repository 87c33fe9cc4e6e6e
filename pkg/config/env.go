package config

// EnvPrefix is intentionally empty; every binding names its full variable.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "TAHANAN_APP_ENV"
	EnvPort   = "TAHANAN_APP_PORT"

	EnvDBDSN  = "TAHANAN_DB_DSN"
	EnvDBHost = "TAHANAN_DB_HOST"
	EnvDBUser = "TAHANAN_DB_USER"
	EnvDBName = "TAHANAN_DB_NAME"

	EnvRedisURL = "TAHANAN_REDIS_URL"

	EnvPayMongoSecretKey = "TAHANAN_PAYMONGO_SECRET_KEY"
	EnvPayPalClientID    = "TAHANAN_PAYPAL_CLIENT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
