// Package slug maps human-supplied prompt names to filesystem-safe stems.
package slug

import "strings"

// Extension is the storage extension for prompt files.
const Extension = ".md"

// Encode lowercases name and replaces every character outside [a-z0-9-_]
// with an underscore. The mapping is lossy: distinct names may encode to
// the same stem, in which case the last writer wins. Callers must use the
// canonical (post-encode) name for subsequent lookups.
func Encode(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Decode returns the canonical name for a stored filename: the name with
// the storage extension stripped. Decode is NOT the inverse of Encode;
// information lost during encoding is not recovered.
func Decode(filename string) string {
	return strings.TrimSuffix(filename, Extension)
}

// Filename returns the on-disk filename for a prompt name.
func Filename(name string) string {
	return Encode(name) + Extension
}
