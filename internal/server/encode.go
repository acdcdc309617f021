package server

import "strings"

const upperHex = "0123456789ABCDEF"

// EncodeJQL percent-encodes raw JQL for use as the jql query parameter.
// It first escapes control characters, non-ASCII bytes, space, '"', '<',
// '>' and '`', plus '#', '&', '+' and '%' which would otherwise change how
// the query string is parsed. It then rewrites every remaining '=' to "%3D".
func EncodeJQL(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) * 3)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
			continue
		}
		b.WriteByte(c)
	}
	return strings.ReplaceAll(b.String(), "=", "%3D")
}

func shouldEscape(c byte) bool {
	if c < 0x20 || c >= 0x7F {
		return true
	}
	switch c {
	case ' ', '"', '<', '>', '`', '#', '&', '+', '%':
		return true
	}
	return false
}
