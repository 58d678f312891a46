package cli

import (
	"regexp"
)

// redactSensitiveInfo masks secrets that may appear in error messages
// printed to the terminal.
func redactSensitiveInfo(message string) string {
	patterns := []struct {
		pattern *regexp.Regexp
		replace string
	}{
		// Address fragments carry capability tokens.
		{regexp.MustCompile(`(https://[^\s#"']+)#[^\s"']+`), "$1#[REDACTED]"},

		// PEM material
		{regexp.MustCompile(`-----BEGIN [A-Z\s]+-----[^-]+-----END [A-Z\s]+-----`), "[PEM REDACTED]"},

		// Passphrases in flags, env assignments or messages
		{regexp.MustCompile(`(?i)(passphrase|password)[\s:=]+\S+`), "$1=[REDACTED]"},
		{regexp.MustCompile(`COURIER_[A-Z_]*PASSPHRASE=\S+`), "[PASSPHRASE REDACTED]"},

		{regexp.MustCompile(`/home/[^/\s]+`), "/home/[USER]"},
		{regexp.MustCompile(`/Users/[^/\s]+`), "/Users/[USER]"},
	}

	result := message
	for _, p := range patterns {
		result = p.pattern.ReplaceAllString(result, p.replace)
	}

	return result
}

// RedactError redacts sensitive information from error messages
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return redactSensitiveInfo(err.Error())
}
