// Package snapshot turns raw HTTP exchanges into the masked, size-bounded
// values stored in audit entries.
package snapshot

import (
	"regexp"
	"strings"
)

var nonAlnumRun = regexp.MustCompile(`[^A-Z0-9]+`)

// EventMetadata derives the audit event name and id for a request.
// ("/api/v1/test-resource", "post") yields
// ("POST /api/v1/test-resource", "POST_API_V1_TEST_RESOURCE").
func EventMetadata(path, method string) (name, id string) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if path == "" {
		path = "/"
	}
	name = method + " " + path
	id = strings.Trim(nonAlnumRun.ReplaceAllString(strings.ToUpper(name), "_"), "_")
	return name, id
}

// ModuleFromPath returns the first path segment after optional "api" and
// version prefixes.
func ModuleFromPath(path string) string {
	for _, seg := range strings.Split(path, "/") {
		seg = strings.ToLower(strings.TrimSpace(seg))
		if seg == "" || seg == "api" || isVersion(seg) {
			continue
		}
		return seg
	}
	return "root"
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
