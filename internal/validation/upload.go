// Package validation contains input validation helpers shared by handlers
// and services.
package validation

import (
	"strings"
)

// AllowedFile reports whether filename carries an extension present in the
// allowed set. The match is case-insensitive on the suffix; a file without
// any extension is never allowed.
func AllowedFile(filename string, allowed map[string]struct{}) bool {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	_, ok := allowed[ext]
	return ok
}

// SanitizeFilename reduces a client-supplied filename to a safe basename:
// path separators are stripped, anything outside [A-Za-z0-9._-] becomes an
// underscore, and leading dots are dropped so the result can never traverse
// or hide.
func SanitizeFilename(name string) string {
	// Keep only the final path element regardless of separator style.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return strings.TrimLeft(b.String(), ".")
}
