package files

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit bounds the sample read for content-type detection.
const sniffLimit = 2048

// DefaultContentType is used when the content matches nothing better.
const DefaultContentType = "application/octet-stream"

// DetectContentType sniffs the real content type from the first bytes
// of rs and rewinds it. The declared type from the client is ignored;
// content wins.
func DetectContentType(rs io.ReadSeeker) (string, error) {
	sample := make([]byte, sniffLimit)
	n, err := io.ReadFull(rs, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read sniff sample: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind after sniff: %w", err)
	}

	if n == 0 {
		return DefaultContentType, nil
	}

	detected := mimetype.Detect(sample[:n]).String()
	// mimetype appends parameters such as "; charset=utf-8".
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	detected = strings.TrimSpace(detected)
	if detected == "" {
		return DefaultContentType, nil
	}
	return detected, nil
}
