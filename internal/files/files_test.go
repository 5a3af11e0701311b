package files

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convohub/convohub-api/internal/models"
)

func TestContentHashRewinds(t *testing.T) {
	content := []byte("attachment body bytes")
	rs := bytes.NewReader(content)

	got, err := ContentHash(rs)
	require.NoError(t, err)

	want := sha256.Sum256(content)
	require.Equal(t, hex.EncodeToString(want[:]), got)

	// The reader must be back at the start for the storage write.
	rest, err := io.ReadAll(rs)
	require.NoError(t, err)
	require.Equal(t, content, rest)
}

func TestDetectContentType(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)

	ct, err := DetectContentType(bytes.NewReader(png))
	require.NoError(t, err)
	require.Equal(t, "image/png", ct)
}

func TestDetectContentTypeStripsParams(t *testing.T) {
	ct, err := DetectContentType(strings.NewReader("plain text content here"))
	require.NoError(t, err)
	require.Equal(t, "text/plain", ct)
}

func TestDetectContentTypeEmpty(t *testing.T) {
	ct, err := DetectContentType(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Equal(t, DefaultContentType, ct)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		contentType string
		filename    string
		want        string
	}{
		{"image/png", "photo.png", models.AttachmentTypeImage},
		{"image/webp", "photo.webp", models.AttachmentTypeImage},
		{"application/pdf", "report.pdf", models.AttachmentTypeDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "doc.docx", models.AttachmentTypeDocument},
		{"application/json", "payload.json", models.AttachmentTypeDocument},
		{"text/csv", "data.csv", models.AttachmentTypeDocument},
		{"text/markdown", "notes.md", models.AttachmentTypeDocument},
		{"TEXT/PLAIN", "notes.txt", models.AttachmentTypeDocument},
		// Sniffed as a generic binary but the extension marks it as code.
		{"application/octet-stream", "main.go", models.AttachmentTypeDocument},
		{"application/octet-stream", "script.py", models.AttachmentTypeDocument},
		{"application/zip", "bundle.zip", models.AttachmentTypeOther},
		{"audio/mpeg", "song.mp3", models.AttachmentTypeOther},
		{"video/mp4", "clip.mp4", models.AttachmentTypeOther},
		{"application/octet-stream", "blob.bin", models.AttachmentTypeOther},
		{"", "", models.AttachmentTypeOther},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.contentType, tc.filename), "content type %q filename %q", tc.contentType, tc.filename)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my report.pdf", "my_report.pdf"},
		{"résumé.docx", "resume.docx"},
		{"../../etc/passwd", "etcpasswd"},
		{"dir/sub\\file.txt", "dirsubfile.txt"},
		{".hidden", "_hidden"},
		{"", "unnamed_file"},
		{"###", "unnamed_file"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeFilenameCapsLengthPreservingExt(t *testing.T) {
	long := strings.Repeat("a", 300) + ".pdf"

	got := SanitizeFilename(long)
	require.Len(t, got, 255)
	require.True(t, strings.HasSuffix(got, ".pdf"))
}

func TestStoragePathWithHash(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	hash := "deadbeefcafe0123456789"

	got := StoragePath("u1", "c1", "report.pdf", hash, now)
	require.Equal(t, "u1/conversations/c1/2026/08/29/deadbeef_report.pdf", got)
}

func TestStoragePathPendingHash(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 30, 45, 123456000, time.UTC)

	got := StoragePath("u1", "c1", "report.pdf", models.PendingContentHash, now)
	require.Equal(t, "u1/conversations/c1/2026/08/29/103045123456_report.pdf", got)
}
