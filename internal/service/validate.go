package service

import (
	"net/url"
	"regexp"
	"strings"
)

// domainRe matches a bare domain name: dot-separated labels of alphanumerics
// and hyphens, with a final label of at least two letters.
var domainRe = regexp.MustCompile(`^(?:[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}$`)

// normalizeURL prepends "https://" to input that carries no scheme so that
// bare domains like "example.com/x" become resolvable targets.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}

	return "https://" + raw
}

// isValidURL reports whether raw parses as an absolute URL with a scheme and
// a host whose name has a plausible domain shape. Malformed input yields
// false, never a panic.
func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return domainRe.MatchString(u.Hostname())
}
