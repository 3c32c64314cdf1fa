package app

import (
	"github.com/orasync/orasync-backend/internal/platform/envutil"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string
}

func LoadConfig() Config {
	return Config{
		ServiceName: envutil.String("SERVICE_NAME", "orasync"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		Port:        envutil.String("PORT", "8080"),
	}
}
