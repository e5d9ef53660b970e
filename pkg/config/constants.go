package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, DSN fallback).
const (
	EnvAppEnv  = "SHOPLANE_APP_ENV"
	EnvPort    = "SHOPLANE_APP_PORT"
	EnvDBDSN   = "SHOPLANE_DB_DSN"
	EnvDBHost  = "SHOPLANE_DB_HOST"
	EnvDBUser  = "SHOPLANE_DB_USER"
	EnvDBName  = "SHOPLANE_DB_NAME"
	EnvRedisURL = "SHOPLANE_REDIS_URL"

	EnvJWTIssuer        = "SHOPLANE_JWT_ISSUER"
	EnvJWTAccessSecret  = "SHOPLANE_JWT_ACCESS_SECRET"
	EnvJWTRefreshSecret = "SHOPLANE_JWT_REFRESH_SECRET"
	EnvJWTAccessTTL     = "SHOPLANE_JWT_ACCESS_TTL_MINUTES"
	EnvJWTRefreshTTL    = "SHOPLANE_JWT_REFRESH_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
