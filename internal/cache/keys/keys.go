// Package keys builds cache keys for layer snapshots.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "heatbox:layer"

// LayerKey identifies the cached FeatureCollection of one category as
// served by one upstream. origin is the base URL, table or directory the
// bytes came from, so switching upstreams never reads a stale snapshot.
func LayerKey(category, origin string) string {
	cat := sanitize(strings.TrimSpace(category))
	sum := xxhash.Sum64String(strings.TrimSpace(origin))
	return fmt.Sprintf("%s:%s:o=%016x", prefix, cat, sum)
}

// LayerPattern matches every snapshot of category regardless of origin.
func LayerPattern(category string) string {
	return fmt.Sprintf("%s:%s:o=*", prefix, sanitize(strings.TrimSpace(category)))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case isASCIIWhitespace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// ':' is reserved as the key separator; non-ASCII becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isASCIIWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func isAlphaNum(r rune) bool {
	return r < unicode.MaxASCII && ((r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r))
}
