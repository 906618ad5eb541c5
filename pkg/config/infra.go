package config

import (
	"strings"

	"github.com/go-chi/cors"
)

type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	JwtIssuer string `env:"JWT_ISSUER" env-default:"simple-usermgmt"`
}

// RedisConfig enables the bootstrap lock when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// RabbitConfig enables lifecycle event publishing when URL is set.
type RabbitConfig struct {
	URL   string `env:"RABBITMQ_URL"`
	Queue string `env:"RABBITMQ_QUEUE" env-default:"usermgmt.events"`
}

func (c RabbitConfig) Enabled() bool {
	return c.URL != ""
}

type PersistenceConfig struct {
	Type    string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	DataDir string `env:"DATA_DIR" env-default:"./data"`
}

// CorsConfig lists the browser origins allowed to call the API with credentials.
type CorsConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:4200,http://itam.arinco.net"`
}

func (c CorsConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Options allows any method and header from the configured origins, with credentials.
func (c CorsConfig) Options() cors.Options {
	return cors.Options{
		AllowedOrigins:   c.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}
