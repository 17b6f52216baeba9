// Package slug derives the canonical report slug from a raw page URL.
//
// The slug doubles as the filename of the hosted report JSON, so the rules
// here are a compatibility contract with the publisher: both sides must
// produce the exact same string for the same input, or lookups miss.
package slug

import (
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// replaced lists the URL characters that become underscores, in addition to
// the stripped scheme prefix.
const replaced = "/?&=#"

// Normalize turns a raw user-entered URL into a report slug.
//
// Rules, applied in order:
//  1. strip a leading "http://" or "https://" (case-sensitive, prefix only)
//  2. replace every "/", "?", "&", "=", "#" with "_"
//  3. strip any trailing run of "_"
//
// Normalize is total: any string in, some string out (possibly empty).
func Normalize(raw string) string {
	s := strings.TrimPrefix(raw, "https://")
	if s == raw {
		s = strings.TrimPrefix(s, "http://")
	}
	for _, ch := range replaced {
		s = strings.ReplaceAll(s, string(ch), "_")
	}
	return strings.TrimRight(s, "_")
}

// ReportPath returns the hosted filename for a raw URL: the slug plus the
// ".json" suffix the publisher appends.
func ReportPath(raw string) string {
	return Normalize(raw) + ".json"
}

// Domain returns the registrable domain of the input, for grouping reports
// that belong to the same site. Falls back to the slug's first path-free
// segment when the public suffix list can't parse the host.
func Domain(raw string) string {
	host := Normalize(raw)
	if i := strings.IndexByte(host, '_'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	if h, p, ok := strings.Cut(host, ":"); ok && p != "" {
		host = h
	}
	d, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return d
}
