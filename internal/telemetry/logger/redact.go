package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys whose values are never logged.
var sensitiveKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
	"auth",
	"requirepass",
	"masterauth",
}

// CONFIG SET parameters that carry credentials.
var sensitiveConfigParams = map[string]bool{
	"requirepass":              true,
	"masterauth":               true,
	"masteruser":               true,
	"tls-key-file-pass":        true,
	"tls-client-key-file-pass": true,
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks string attributes whose key suggests a credential.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		return a
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// RedactCommand returns a copy of a Redis command with credentials masked.
//
// It covers AUTH, HELLO ... AUTH user pass, MIGRATE ... AUTH pass and
// AUTH2 user pass, CONFIG SET of credential parameters, and ACL SETUSER
// password rules (">pass", "<pass", "#hash", "!hash").
func RedactCommand(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	if len(out) == 0 {
		return out
	}

	switch strings.ToUpper(out[0]) {
	case "AUTH":
		maskFrom(out, 1, len(out)-1)
	case "HELLO":
		for i := 1; i < len(out); i++ {
			if strings.EqualFold(out[i], "AUTH") {
				maskFrom(out, i+2, 1)
				i += 2
			}
		}
	case "MIGRATE":
		for i := 1; i < len(out); i++ {
			switch strings.ToUpper(out[i]) {
			case "AUTH":
				maskFrom(out, i+1, 1)
				i++
			case "AUTH2":
				maskFrom(out, i+2, 1)
				i += 2
			}
		}
	case "CONFIG":
		if len(out) > 1 && strings.EqualFold(out[1], "SET") {
			for i := 2; i+1 < len(out); i += 2 {
				if sensitiveConfigParams[strings.ToLower(out[i])] {
					out[i+1] = redactedValue
				}
			}
		}
	case "ACL":
		if len(out) > 1 && strings.EqualFold(out[1], "SETUSER") {
			for i := 3; i < len(out); i++ {
				if out[i] != "" && strings.ContainsRune("><#!", rune(out[i][0])) {
					out[i] = out[i][:1] + redactedValue
				}
			}
		}
	}
	return out
}

// maskFrom masks n arguments starting at index i, staying in bounds.
func maskFrom(args []string, i, n int) {
	for j := i; j < i+n && j < len(args); j++ {
		if j >= 0 {
			args[j] = redactedValue
		}
	}
}
