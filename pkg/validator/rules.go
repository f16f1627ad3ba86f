package validator

import (
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PasswordStrengthConfig controls StrongPassword requirements.
type PasswordStrengthConfig struct {
	MinLength      int
	MaxLength      int
	MinCharClasses int
}

// DefaultPasswordStrength requires only length and two character classes.
// Stricter composition rules push users toward predictable patterns.
func DefaultPasswordStrength() PasswordStrengthConfig {
	return PasswordStrengthConfig{
		MinLength:      8,
		MaxLength:      128,
		MinCharClasses: 2,
	}
}

// ValidEmail checks the value parses as a bare address with a dotted domain.
func ValidEmail(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: "must be a valid email address",
		Check: func() bool {
			value := strings.TrimSpace(value)
			if value == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}

			parts := strings.Split(addr.Address, "@")
			if len(parts) != 2 || parts[0] == "" {
				return false
			}

			domain := parts[1]
			return strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") &&
				!strings.HasSuffix(domain, ".")
		},
	}
}

// ValidPhone checks the value is a valid phone number in E.164 form.
func ValidPhone(field, value string) Rule {
	return Rule{
		Field:   field,
		Message: "must be a valid phone number in E.164 format",
		Check: func() bool {
			if !strings.HasPrefix(value, "+") {
				return false
			}

			num, err := phonenumbers.Parse(value, "")
			if err != nil {
				return false
			}
			return phonenumbers.IsValidNumber(num)
		},
	}
}

// StrongPassword checks length bounds and the number of distinct character
// classes (upper, lower, digit, other) used.
func StrongPassword(field, value string, config PasswordStrengthConfig) Rule {
	return Rule{
		Field:   field,
		Message: "does not meet password strength requirements",
		Check: func() bool {
			if len(value) < config.MinLength || len(value) > config.MaxLength {
				return false
			}

			var hasUpper, hasLower, hasDigit, hasOther bool
			for _, r := range value {
				switch {
				case r >= 'A' && r <= 'Z':
					hasUpper = true
				case r >= 'a' && r <= 'z':
					hasLower = true
				case r >= '0' && r <= '9':
					hasDigit = true
				default:
					hasOther = true
				}
			}

			classes := 0
			for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
				if ok {
					classes++
				}
			}
			return classes >= config.MinCharClasses
		},
	}
}
