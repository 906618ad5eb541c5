// Package config reads the service configuration from environment variables
// with cleanenv, after loading an optional .env file with godotenv.
//
//	cfg, err := config.Load(".env")
//	pool, err := dbutils.NewDbPool(ctx, cfg.DatabaseConfig.ToDbConfig())
//	policy := cfg.PasswordPolicyConfig.ToPasswordPolicy()
//	admins := cfg.AuthzConfig.Roles()
//
// Redis and RabbitMQ are optional. Leaving REDIS_ADDR or RABBITMQ_URL empty
// disables the bootstrap lock or event publishing.
package config
