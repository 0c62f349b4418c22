// Package redact removes sensitive values from captured request and
// response bodies before they reach any log sink.
package redact

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

// Pattern selects which parts of a body to redact. A key pattern matches
// JSON object keys by case-insensitive substring; a regexp pattern matches
// keys when the body parses as JSON and raw text otherwise.
type Pattern struct {
	key string
	re  *regexp.Regexp
}

// Key returns a pattern matching object keys containing k, ignoring case.
func Key(k string) Pattern {
	return Pattern{key: strings.ToLower(k)}
}

// Keys is shorthand for building one Key pattern per name.
func Keys(names ...string) []Pattern {
	out := make([]Pattern, 0, len(names))
	for _, n := range names {
		out = append(out, Key(n))
	}
	return out
}

// Regexp returns a pattern matching keys (or, in text fallback mode, body
// content) against re.
func Regexp(re *regexp.Regexp) Pattern {
	return Pattern{re: re}
}

func (p Pattern) matchKey(key string) bool {
	if p.re != nil {
		return p.re.MatchString(key)
	}
	return strings.Contains(strings.ToLower(key), p.key)
}

// Redact returns a copy of body with values under matching keys replaced by
// Placeholder. Bodies that parse as JSON are walked structurally; anything
// else falls back to textual replacement. Redact never fails: with no
// patterns it is the identity function, and unparseable input passes
// through the text fallback unchanged when nothing matches.
func Redact(body string, patterns []Pattern) string {
	if len(patterns) == 0 {
		return body
	}

	var parsed any
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		redacted := redactValue(parsed, patterns)
		if out, err := json.Marshal(redacted); err == nil {
			return string(out)
		}
	}
	return redactText(body, patterns)
}

func redactValue(v any, patterns []Pattern) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			if _, ok := inner.(string); ok && anyMatch(key, patterns) {
				out[key] = Placeholder
				continue
			}
			out[key] = redactValue(inner, patterns)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner, patterns)
		}
		return out
	default:
		return v
	}
}

func anyMatch(key string, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.matchKey(key) {
			return true
		}
	}
	return false
}

func redactText(body string, patterns []Pattern) string {
	result := body
	for _, p := range patterns {
		if p.re != nil {
			result = p.re.ReplaceAllString(result, Placeholder)
			continue
		}
		re, err := regexp.Compile(`(?i)("` + regexp.QuoteMeta(p.key) + `"\s*:\s*)"[^"]*"`)
		if err != nil {
			continue
		}
		result = re.ReplaceAllString(result, `${1}"`+Placeholder+`"`)
	}
	return result
}
