package fsutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxNameLen = 128

// SanitizeName makes a file name from an arbitrary identifier such as a
// source path. Anything other than ASCII letters, digits, '.', '_' and '-'
// becomes a single underscore; leading and trailing dots and underscores
// are trimmed.
func SanitizeName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// JoinWithin joins name onto dir and rejects results that resolve outside
// dir. The check is lexical; symlinks are not followed.
func JoinWithin(dir, name string) (string, error) {
	joined := filepath.Join(dir, name)
	rel, err := filepath.Rel(filepath.Clean(dir), joined)
	if err != nil {
		return "", fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path traversal detected: %s escapes %s", name, dir)
	}
	return joined, nil
}
