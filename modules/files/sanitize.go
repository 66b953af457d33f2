package files

import (
	"path"
	"strings"
)

const fallbackName = "upload"

// SanitizeFilename reduces a client-supplied filename to a safe object
// name. Path components are stripped, whitespace becomes underscores,
// and anything outside [A-Za-z0-9._-] is dropped. An empty or fully
// rejected name falls back to "upload".
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._-")
	if cleaned == "" {
		return fallbackName
	}
	return cleaned
}
