package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MaxBytes is the longest password bcrypt accepts. It applies regardless of Policy.
const MaxBytes = 72

// Policy defines the requirements for password complexity.
// Lengths count characters, not bytes.
type Policy struct {
	MinLength          int
	MaxLength          int // 0 means only MaxBytes applies
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
}

// DefaultPolicy requires six characters with at least one uppercase letter,
// one lowercase letter and one digit. Special characters are optional.
func DefaultPolicy() *Policy {
	return &Policy{
		MinLength:          6,
		MaxLength:          MaxBytes,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireDigit:       true,
		RequireSpecialChar: false,
	}
}

// PolicyChecker checks a plaintext password against a Policy
type PolicyChecker struct {
	policy *Policy
}

func NewPolicyChecker(policy *Policy) *PolicyChecker {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &PolicyChecker{policy: policy}
}

// Violations returns every rule the password breaks, in a stable order.
// An empty result means the password is acceptable.
func (pc *PolicyChecker) Violations(password string) []string {
	var out []string

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSpecial = true
		}
	}

	length := utf8.RuneCountInString(password)
	if length < pc.policy.MinLength {
		out = append(out, fmt.Sprintf("password must be at least %d characters long", pc.policy.MinLength))
	}
	if pc.policy.MaxLength > 0 && length > pc.policy.MaxLength {
		out = append(out, fmt.Sprintf("password must be at most %d characters long", pc.policy.MaxLength))
	} else if len(password) > MaxBytes {
		out = append(out, fmt.Sprintf("password must be at most %d bytes long", MaxBytes))
	}
	if pc.policy.RequireUppercase && !hasUpper {
		out = append(out, "password must contain at least one uppercase letter")
	}
	if pc.policy.RequireLowercase && !hasLower {
		out = append(out, "password must contain at least one lowercase letter")
	}
	if pc.policy.RequireDigit && !hasDigit {
		out = append(out, "password must contain at least one digit")
	}
	if pc.policy.RequireSpecialChar && !hasSpecial {
		out = append(out, "password must contain at least one special character")
	}

	return out
}

// GetPolicy returns the password policy
func (pc *PolicyChecker) GetPolicy() *Policy {
	return pc.policy
}
