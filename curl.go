package snapwyr

import (
	"sort"
	"strings"
)

// CurlParams describe the request to reproduce.
type CurlParams struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// ToCurl builds a shell-safe curl command reproducing the request. GET
// requests omit -X, the Authorization header and any pseudo-header
// starting with ":" are skipped, single quotes in the body are escaped and
// -d is emitted only for non-GET requests with a body. Headers appear in
// sorted order so output is deterministic.
func ToCurl(p CurlParams) string {
	method := strings.ToUpper(p.Method)
	if method == "" {
		method = "GET"
	}
	parts := []string{"curl"}

	if method != "GET" {
		parts = append(parts, "-X "+method)
	}

	keys := make([]string, 0, len(p.Headers))
	for k := range p.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, ":") || strings.EqualFold(k, "authorization") {
			continue
		}
		parts = append(parts, "-H '"+k+": "+p.Headers[k]+"'")
	}

	if p.Body != "" && method != "GET" {
		escaped := strings.ReplaceAll(p.Body, "'", `'\''`)
		parts = append(parts, "-d '"+escaped+"'")
	}

	parts = append(parts, "'"+p.URL+"'")
	return strings.Join(parts, " ")
}
