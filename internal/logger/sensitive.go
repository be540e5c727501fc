package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveDataPatterns match credentials embedded in free text such as
// connection strings and error messages returned by database drivers.
var sensitiveDataPatterns = []*regexp.Regexp{
	// key=value and key: value credentials
	regexp.MustCompile(`(?i)((passw(or)?d|pwd|secret|token|api[_-]?key)[\s:=]+)([^;,\s]+)`),
	// user:password@ in MySQL and URL style DSNs
	regexp.MustCompile(`([A-Za-z0-9_.-]+:)([^\s/@]+)(@)`),
}

var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "dsn", "credential",
}

// RedactSensitiveData replaces credentials in input with [REDACTED].
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	input = sensitiveDataPatterns[0].ReplaceAllString(input, "${1}"+redactedValue)
	input = sensitiveDataPatterns[1].ReplaceAllString(input, "${1}"+redactedValue+"${3}")
	return input
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
