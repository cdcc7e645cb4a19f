package config

const (
	EnvPrefix = "TIENDA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TIENDA_DB_DSN"
	EnvDBHost = "TIENDA_DB_HOST"
	EnvDBUser = "TIENDA_DB_USER"
	EnvDBName = "TIENDA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
