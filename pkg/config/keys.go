package config

const (
	EnvPrefix = "HYPERLOCAL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "HYPERLOCAL_APP_ENV"
	EnvPort   = "HYPERLOCAL_APP_PORT"

	EnvDBDSN  = "HYPERLOCAL_DB_DSN"
	EnvDBHost = "HYPERLOCAL_DB_HOST"
	EnvDBPort = "HYPERLOCAL_DB_PORT"
	EnvDBUser = "HYPERLOCAL_DB_USER"
	EnvDBPass = "HYPERLOCAL_DB_PASSWORD"
	EnvDBName = "HYPERLOCAL_DB_NAME"

	EnvRedisURL = "HYPERLOCAL_REDIS_URL"

	EnvJWTSecret = "HYPERLOCAL_JWT_SECRET"
	EnvJWTIssuer = "HYPERLOCAL_JWT_ISSUER"

	EnvDeliveryRadiusKm     = "HYPERLOCAL_DELIVERY_RADIUS_KM"
	EnvDeliveryFeeCents     = "HYPERLOCAL_DELIVERY_FEE_CENTS"
	EnvPlatformFeeCents     = "HYPERLOCAL_PLATFORM_FEE_CENTS"
	EnvDefaultPartnerRating = "HYPERLOCAL_DEFAULT_PARTNER_RATING"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
