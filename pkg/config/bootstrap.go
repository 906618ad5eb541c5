package config

import (
	"log/slog"
	"time"

	"github.com/sosodev/duration"
	"github.com/tendant/simple-usermgmt/pkg/bootstrap"
)

// BootstrapConfig describes the default user seeded into an empty store.
type BootstrapConfig struct {
	Enabled     bool   `env:"BOOTSTRAP_ENABLED" env-default:"true"`
	FirstName   string `env:"BOOTSTRAP_FIRST_NAME" env-default:"Default"`
	LastName    string `env:"BOOTSTRAP_LAST_NAME" env-default:"User"`
	Email       string `env:"BOOTSTRAP_EMAIL" env-default:"defaultuser@itam.com"`
	PhoneNumber string `env:"BOOTSTRAP_PHONE_NUMBER" env-default:"00000000"`
	Password    string `env:"BOOTSTRAP_PASSWORD" env-default:"Start1234!"`
	// LockTTL is an ISO 8601 duration, e.g. PT2M.
	LockTTL string `env:"BOOTSTRAP_LOCK_TTL" env-default:"PT2M"`
}

// ToSeederConfig converts the configuration to a bootstrap.Config, granting
// the default user adminRole.
func (c BootstrapConfig) ToSeederConfig(adminRole string) bootstrap.Config {
	return bootstrap.Config{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		PhoneNumber:   c.PhoneNumber,
		Password:      c.Password,
		AdminRoleName: adminRole,
	}
}

// LockDuration parses LockTTL, falling back to bootstrap.DefaultLockTTL.
func (c BootstrapConfig) LockDuration() time.Duration {
	d, err := duration.Parse(c.LockTTL)
	if err != nil {
		slog.Error("Failed to parse bootstrap lock TTL", "value", c.LockTTL, "err", err)
		return bootstrap.DefaultLockTTL
	}
	if ttl := d.ToTimeDuration(); ttl > 0 {
		return ttl
	}
	return bootstrap.DefaultLockTTL
}
