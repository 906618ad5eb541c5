package config

import (
	"log/slog"

	"github.com/jinzhu/copier"
	"github.com/tendant/simple-usermgmt/pkg/password"
)

// PasswordPolicyConfig holds password policy configuration from environment variables.
// Field names follow password.Policy so the two can be copied.
type PasswordPolicyConfig struct {
	MinLength          int  `env:"PASSWORD_COMPLEXITY_REQUIRED_LENGTH" env-default:"6"`
	MaxLength          int  `env:"PASSWORD_COMPLEXITY_MAX_LENGTH" env-default:"72"`
	RequireUppercase   bool `env:"PASSWORD_COMPLEXITY_REQUIRE_UPPERCASE" env-default:"true"`
	RequireLowercase   bool `env:"PASSWORD_COMPLEXITY_REQUIRE_LOWERCASE" env-default:"true"`
	RequireDigit       bool `env:"PASSWORD_COMPLEXITY_REQUIRE_DIGIT" env-default:"true"`
	RequireSpecialChar bool `env:"PASSWORD_COMPLEXITY_REQUIRE_NON_ALPHANUMERIC" env-default:"false"`
}

// ToPasswordPolicy converts the configuration to a password.Policy
func (c *PasswordPolicyConfig) ToPasswordPolicy() *password.Policy {
	if c == nil {
		return password.DefaultPolicy()
	}

	policy := &password.Policy{}
	if err := copier.Copy(policy, c); err != nil {
		slog.Error("Failed to copy password policy, using default", "err", err)
		return password.DefaultPolicy()
	}

	slog.Info("Password policy configuration",
		"minLength", policy.MinLength,
		"maxLength", policy.MaxLength,
		"upper", policy.RequireUppercase,
		"lower", policy.RequireLowercase,
		"digit", policy.RequireDigit,
		"special", policy.RequireSpecialChar,
	)
	return policy
}
