package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
)

// Config is the full service configuration read from the environment.
type Config struct {
	DatabaseConfig       DatabaseConfig
	AppConfig            app.AppConfig
	JwtConfig            JwtConfig
	PasswordPolicyConfig PasswordPolicyConfig
	BootstrapConfig      BootstrapConfig
	AuthzConfig          AuthzConfig
	RedisConfig          RedisConfig
	RabbitConfig         RabbitConfig
	PersistenceConfig    PersistenceConfig
	CorsConfig           CorsConfig
	LogLevel             string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads envFile when it exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
			slog.Info("Loaded environment file", "file", envFile)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
