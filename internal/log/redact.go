package log

import (
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// Request and response headers a fetch may log.
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,

	// Credentials.
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"refresh_token": true,
	"private_key":   true,
	"credentials":   true,

	// Session identifiers.
	"session":    true,
	"session_id": true,
	"sessionid":  true,
	"sid":        true,
	"jsessionid": true,

	// Queue.
	"redis_password": true,
}

// sensitiveKeywords mask any key that contains them. The bare word "key"
// is left out because it matches harmless names such as "primary_key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns mask a string value regardless of its key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	// Opaque API keys
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
	// AWS access key IDs
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	// PEM private keys
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// urlRedaction rewrites one secret part of every URL found in a string.
type urlRedaction struct {
	pattern *regexp.Regexp
	repl    string
}

// urlRedactions keep scanned URLs readable while hiding what they carry:
// the userinfo password ("https://user:pw@host", "redis://:pw@host") and
// query parameters used for signed or token-authenticated links.
var urlRedactions = []urlRedaction{
	{
		pattern: regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^:/@\s]*:)([^@/\s]+)(@)`),
		repl:    "${1}" + MaskValue + "${3}",
	},
	{
		pattern: regexp.MustCompile(`(?i)([?&](?:access_token|api_key|apikey|auth|key|password|sig|signature|token|x-amz-credential|x-amz-security-token|x-amz-signature|x-goog-signature)=)([^&#\s"']+)`),
		repl:    "${1}" + MaskValue,
	},
}

// isSensitiveKey reports whether values logged under key must be masked.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether value looks like a secret on its own.
func isSensitiveValue(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURLs masks credentials in every URL embedded in s.
func redactURLs(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	for _, r := range urlRedactions {
		s = r.pattern.ReplaceAllString(s, r.repl)
	}
	return s
}
