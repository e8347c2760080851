package config

// EnvPrefix is passed to envconfig; every field carries an explicit key so the
// prefix only matters for fields without one.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvDBHost         = "STOREFRONT_DB_HOST"
	EnvDBUser         = "STOREFRONT_DB_USER"
	EnvDBName         = "STOREFRONT_DB_NAME"
	EnvDBPassword     = "STOREFRONT_DB_PASSWORD"
	EnvUseSQLite      = "STOREFRONT_USE_SQLITE"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvMongoURI       = "STOREFRONT_MONGO_URI"
	EnvCatalogBackend = "STOREFRONT_CATALOG_BACKEND"
	EnvJWTSecret      = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer      = "STOREFRONT_JWT_ISSUER"
	EnvCartShipping   = "STOREFRONT_CART_SHIPPING"
	EnvCORSOrigins    = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvGCPProjectID   = "STOREFRONT_GCP_PROJECT_ID"
	EnvOrdersTopic    = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
