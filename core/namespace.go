package core

import "strings"

// Normalize maps a raw title or identifier to its canonical namespace.
//
// The title is lowercased, "&" becomes "and", every run of characters outside
// [a-z0-9] collapses to a single "_", and leading or trailing "_" are stripped.
// Normalize is total and idempotent. An empty title yields an empty namespace.
func Normalize(title string) Namespace {
	lowered := strings.ReplaceAll(strings.ToLower(title), "&", "and")

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSep := false
	for i := 0; i < len(lowered); i++ {
		c := lowered[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteByte(c)
			continue
		}
		// Multi-byte UTF-8 sequences fall through here byte by byte.
		pendingSep = true
	}
	return Namespace(b.String())
}
