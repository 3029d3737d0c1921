/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package telemetry

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// sensitivePatterns matches common secret shapes in signal payloads
// and event data before they reach a dispatch sink, adapted from the
// teacher's shared/security.Sanitize pattern list.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_.~+/]+=*`),
	regexp.MustCompile(`(?i)(authorization:\s*)(bearer\s+)?[a-zA-Z0-9\-_.~+/]+=*`),
	regexp.MustCompile(`(?i)(token["\s:=]+)[a-zA-Z0-9+/]{40,}=*`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`(?i)(api[_-]?key["\s:=]+)[a-zA-Z0-9\-_.]{20,}`),
	regexp.MustCompile(`(?i)(aws_secret_access_key["\s:=]+)[a-zA-Z0-9/+=]{20,}`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`(?i)(password["\s:=]+)\S+`),
	regexp.MustCompile(`(?s)-----BEGIN[A-Z ]*PRIVATE KEY-----.*?-----END[A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)(client-(?:certificate|key)-data:\s*)[a-zA-Z0-9+/=\n]{40,}`),
}

// Redact scrubs sensitive data out of text, preserving a matched
// prefix label (e.g. "token: ") where the pattern captured one.
func Redact(text string) string {
	result := text
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			loc := pattern.FindStringSubmatchIndex(match)
			if len(loc) >= 4 && loc[2] >= 0 {
				return match[loc[2]:loc[3]] + redactedPlaceholder
			}
			return redactedPlaceholder
		})
	}
	return result
}

// RedactMap applies Redact to every string value in m, additionally
// blanking any value whose key name itself suggests a credential.
func RedactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isCredentialKey(k) {
			out[k] = redactedPlaceholder
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = Redact(s)
			continue
		}
		out[k] = v
	}
	return out
}

func isCredentialKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "api_key", "apikey", "private_key", "credential"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
