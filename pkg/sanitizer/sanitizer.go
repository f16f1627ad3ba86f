package sanitizer

import (
	"regexp"
	"strings"
)

var dotRunRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail lowercases and trims an email address and collapses
// consecutive dots in the local part, so the same mailbox always maps to
// the same user row.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	local = dotRunRegex.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + parts[1]
}

// NormalizePhone strips spaces, dashes, dots, and parentheses so phone
// numbers compare canonically. A leading + is preserved.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	var b strings.Builder
	b.Grow(len(phone))
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
