package utils

import (
	"strings"
	"unicode/utf8"
)

// SanitizeForSink escapes the sink's reserved markup characters and strips
// control characters that break rendering or transport framing. Tab, newline
// and carriage return survive; everything else below 0x20 is dropped.
func SanitizeForSink(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TruncateMessage enforces the sink's maximum message size in bytes. A
// message at or under the limit is returned untouched; a longer one is cut so
// that message plus marker fit exactly within the limit. The cut backs off to
// a rune boundary, so multi-byte text may come out slightly under the limit.
func TruncateMessage(s string, limit int, marker string) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - len(marker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + marker
}
