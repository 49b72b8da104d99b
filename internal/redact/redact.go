// Package redact scrubs credentials and query fragments out of error text
// before it is persisted on a bookmark or published to progress subscribers.
// Both destinations are visible to end users, so anything that could leak a
// connection string, an API key or a SQL statement is replaced.
package redact

import "regexp"

// Placeholders substituted for matched content.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
)

// MaxLength caps redacted output; longer text is truncated.
const MaxLength = 1024

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// Rules are applied in order; credentials go first so that later, broader
// patterns never split a secret in half.
var rules = []rule{
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb)://[^@\s]+@`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)([?&](key|api_key|token)=)[^&\s"]+`), "${1}" + RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)(api[_-]?key|secret|bearer)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\S]*?\b(FROM|INTO|SET)\b[^;]*`), RedactedSQLPlaceholder},
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), RedactionPlaceholder},
	{regexp.MustCompile(`(?:^|\s)(/(?:home|root|var|etc|usr|tmp)(?:/[\w.\-]+)+)`), " " + RedactedPathPlaceholder},
}

// String redacts sensitive content from input and truncates it to MaxLength.
func String(input string) string {
	if input == "" {
		return input
	}

	out := input
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.placeholder)
	}

	if len(out) > MaxLength {
		out = out[:MaxLength] + "…"
	}
	return out
}

// Error redacts sensitive information from err.Error().
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
