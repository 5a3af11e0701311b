package files

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// ContentHash computes the SHA-256 hex digest of rs and rewinds it so
// the caller can stream the same content to storage afterwards.
func ContentHash(rs io.ReadSeeker) (string, error) {
	h := sha256.New()

	buf := make([]byte, 8*1024)
	if _, err := io.CopyBuffer(h, rs, buf); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind after hash: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
