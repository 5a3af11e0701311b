package files

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFilenameLen = 255

// FallbackFilename replaces names that sanitise down to nothing.
const FallbackFilename = "unnamed_file"

var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename normalises a client-supplied filename into a safe
// ascii name: accents folded away, spaces collapsed to underscores,
// path separators and parent references stripped, length capped while
// preserving the extension.
func SanitizeFilename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err == nil {
		name = folded
	}

	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	name = b.String()

	// A leading dot would hide the file on unix hosts.
	if strings.HasPrefix(name, ".") {
		name = "_" + strings.TrimLeft(name, ".")
	}

	if name == "" || name == "_" {
		return FallbackFilename
	}

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLen {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}

	return name
}
