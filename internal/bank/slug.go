package bank

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

const (
	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193
)

// Slugify derives a stable category id from a display name. Names without
// any ASCII letter or digit get a hash-based id so distinct names stay distinct.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	if slug := strings.TrimRight(b.String(), "-"); slug != "" {
		return slug
	}
	return fmt.Sprintf("cat-%08x", fnv1a32(name))
}

// fnv1a32 hashes the UTF-16 code units of s, so ids match the ones the web
// client has already stored.
func fnv1a32(s string) uint32 {
	h := fnvOffset32
	for _, unit := range utf16.Encode([]rune(s)) {
		h ^= uint32(unit)
		h *= fnvPrime32
	}
	return h
}
