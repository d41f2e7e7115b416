package logging

import (
	"regexp"
)

const (
	// MaxQuestionLogLength is the maximum length of a question to log.
	MaxQuestionLogLength = 200
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match email addresses mentioned inside questions.
	emailPattern = regexp.MustCompile(`[^@\s]+@[^@\s]+\.[^@\s]+`)

	// Pattern to match North-American style phone numbers.
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	// Pattern to match potential passwords in connection strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match connection string credentials (user:pass@host format).
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// SanitizeQuestion truncates and redacts a user question for logging.
// Questions are free text and occasionally contain contact details.
func SanitizeQuestion(question string) string {
	if question == "" {
		return ""
	}

	sanitized := question
	if len(sanitized) > MaxQuestionLogLength {
		sanitized = sanitized[:MaxQuestionLogLength] + "..."
	}

	sanitized = emailPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = phonePattern.ReplaceAllString(sanitized, RedactedText)

	return sanitized
}

// SanitizeConnectionString removes sensitive data from connection strings.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}
