// Package masking redacts credentials before they reach the audit trail.
package masking

import "strings"

const maskToken = "****"

// MaskSecret keeps the key prefix and the last four characters of a secret,
// e.g. fp_admin_****9f3c.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskFields returns a copy of metadata with the string values under keys
// masked. Other values are copied as is.
func MaskFields(metadata map[string]any, keys ...string) map[string]any {
	if len(metadata) == 0 {
		return nil
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		if _, ok := sensitive[strings.ToLower(trimmed)]; ok {
			if s, isString := value.(string); isString {
				value = MaskSecret(s)
			}
		}
		out[trimmed] = value
	}
	return out
}

// splitPrefix splits at the last underscore so generated keys keep their
// readable prefix.
func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
