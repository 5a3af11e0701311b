package files

import (
	"path/filepath"
	"strings"

	"github.com/convohub/convohub-api/internal/models"
)

var documentContentTypes = map[string]struct{}{
	"application/pdf": {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
	"application/json": {},
	"text/csv":         {},
}

// Code and markup files carry text worth extracting even when sniffed
// as application/octet-stream.
var documentExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".rst": {}, ".csv": {}, ".json": {},
	".yaml": {}, ".yml": {}, ".toml": {}, ".xml": {}, ".html": {},
	".py": {}, ".go": {}, ".js": {}, ".ts": {}, ".java": {},
	".c": {}, ".cpp": {}, ".h": {}, ".rb": {}, ".rs": {},
	".sh": {}, ".sql": {},
}

var archiveContentTypes = map[string]struct{}{
	"application/zip":              {},
	"application/x-tar":            {},
	"application/gzip":             {},
	"application/x-7z-compressed":  {},
	"application/x-rar-compressed": {},
	"application/vnd.rar":          {},
}

type classifyRule struct {
	match func(contentType, ext string) bool
	tag   string
}

// Rules are evaluated in order; the first match wins.
var classifyRules = []classifyRule{
	{func(ct, _ string) bool { return strings.HasPrefix(ct, "image/") }, models.AttachmentTypeImage},
	{func(ct, _ string) bool { _, ok := documentContentTypes[ct]; return ok }, models.AttachmentTypeDocument},
	{func(_, ext string) bool { _, ok := documentExtensions[ext]; return ok }, models.AttachmentTypeDocument},
	{func(ct, _ string) bool { return strings.HasPrefix(ct, "text/") }, models.AttachmentTypeDocument},
	{func(ct, _ string) bool { return strings.HasPrefix(ct, "audio/") }, models.AttachmentTypeOther},
	{func(ct, _ string) bool { _, ok := archiveContentTypes[ct]; return ok }, models.AttachmentTypeOther},
	{func(ct, _ string) bool { return strings.HasPrefix(ct, "video/") }, models.AttachmentTypeOther},
}

// Classify maps a content type and filename onto the attachment type
// used for AI-context routing.
func Classify(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	ext := strings.ToLower(filepath.Ext(filename))

	for _, rule := range classifyRules {
		if rule.match(ct, ext) {
			return rule.tag
		}
	}
	return models.AttachmentTypeOther
}
