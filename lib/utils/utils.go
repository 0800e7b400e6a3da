package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`^(?i)[a-z0-9._%+\-]+@(?:[a-z0-9\-]+\.)+[a-z]{2,}$`)
	letterPattern = regexp.MustCompile(`[a-zA-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
)

// MinPasswordLength is the shortest password accepted at sign up.
const MinPasswordLength = 8

// ValidateEmail reports whether email looks like a deliverable address.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword requires at least MinPasswordLength characters with a
// letter and a digit.
func ValidatePassword(password string) bool {
	if len(password) < MinPasswordLength {
		return false
	}
	return letterPattern.MatchString(password) && digitPattern.MatchString(password)
}

// NormalizeEmail trims and lowercases an address before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func PrintError(message string) {
	fmt.Print(ErrorBanner(message))
}

// ErrorBanner frames message between rows of "=".
func ErrorBanner(message string) string {
	message = "ERROR: " + message
	bannerChar := "="
	bannerLine := strings.Repeat(bannerChar, len(message)+4)

	var b strings.Builder
	b.WriteString(bannerLine + "\n")
	fmt.Fprintf(&b, "%s %s %s\n", bannerChar, message, bannerChar)
	b.WriteString(bannerLine + "\n\n")
	return b.String()
}
