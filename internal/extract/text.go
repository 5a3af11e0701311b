package extract

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// extractText decodes raw bytes to a string, trying UTF-8 first and
// falling back through the legacy single-byte encodings uploads most
// often arrive in.
func extractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252} {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
	}

	// Last resort: replace invalid sequences rather than failing.
	return string([]rune(string(data))), nil
}
