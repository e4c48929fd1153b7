package logging

import (
	"net/url"
	"regexp"
	"strings"
)

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"api-key",
	"authorization",
	"auth",
	"credential",
	"email",
	"user_id",
	"userid",
}

// Patterns for secrets that should be redacted.
var secretPatterns = []*regexp.Regexp{
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),

	// Query-string and header style keys: api_key=..., Api-Key: ...
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[=:]\s*["']?([a-zA-Z0-9+/=_-]{16,})["']?`),

	// Bare 32-char hex API keys
	regexp.MustCompile(`\b[a-f0-9]{32}\b`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactURL redacts sensitive query parameters and userinfo in a URL.
// Unparseable input falls back to Redact.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Redact(raw)
	}
	if u.User != nil {
		u.User = url.User(RedactedValue)
	}
	q := u.Query()
	for key := range q {
		if IsSensitiveField(key) {
			q.Set(key, RedactedValue)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactMap redacts sensitive fields in a metadata map.
func RedactMap(m map[string]string) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		if IsSensitiveField(k) {
			result[k] = RedactedValue
			continue
		}
		result[k] = Redact(v)
	}
	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
