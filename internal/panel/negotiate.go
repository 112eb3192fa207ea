package panel

import (
	"strconv"
	"strings"
)

type Format int

const (
	FormatJSON Format = iota
	FormatHTML
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatText:
		return "text"
	default:
		return "json"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// ParseFormat maps a format query value; ok is false for unknown values.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "application/json":
		return FormatJSON, true
	case "html", "text/html":
		return FormatHTML, true
	case "text", "txt", "plain", "text/plain":
		return FormatText, true
	}
	return FormatJSON, false
}

// Negotiate picks the format from an explicit format value, then the
// highest-q supported Accept entry, then JSON.
func Negotiate(format, accept string) Format {
	if f, ok := ParseFormat(format); ok {
		return f
	}

	bestQ := -1.0
	best := FormatJSON
	for part := range strings.SplitSeq(strings.ToLower(accept), ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		mt := token
		params := ""
		if i := strings.Index(token, ";"); i >= 0 {
			mt = strings.TrimSpace(token[:i])
			params = token[i+1:]
		}
		q := 1.0
		for p := range strings.SplitSeq(params, ";") {
			p = strings.TrimSpace(p)
			if after, ok := strings.CutPrefix(p, "q="); ok {
				if v, err := strconv.ParseFloat(after, 64); err == nil {
					q = v
				}
			}
		}
		var cand Format
		switch {
		case mt == "*/*" || mt == "application/*" || mt == "application/json" || strings.HasSuffix(mt, "+json"):
			cand = FormatJSON
		case mt == "text/html" || mt == "application/xhtml+xml":
			cand = FormatHTML
		case mt == "text/plain" || mt == "text/*":
			cand = FormatText
		default:
			continue
		}
		if q > bestQ {
			bestQ = q
			best = cand
		}
	}
	return best
}
