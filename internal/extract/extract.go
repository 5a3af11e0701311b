package extract

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Hard caps keeping any single document from dominating the prompt.
const (
	maxCSVRows   = 100
	maxSheetRows = 100
	maxJSONChars = 10000
)

type extractFn func([]byte) (string, error)

// textExtensions are code and markup files extracted as plain text even
// when the sniffer labels them application/octet-stream.
var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".rst": {},
	".yaml": {}, ".yml": {}, ".toml": {}, ".xml": {}, ".html": {},
	".py": {}, ".go": {}, ".js": {}, ".ts": {}, ".java": {},
	".c": {}, ".cpp": {}, ".h": {}, ".rb": {}, ".rs": {},
	".sh": {}, ".sql": {},
}

// Extractor turns stored attachment bytes into prompt-ready text.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Text extracts readable text from data. Dispatch checks the file
// extension first, the MIME type second. Extraction never fails the
// caller: errors become a placeholder naming the format, and types
// with no extractor get an unsupported placeholder, so the AI context
// still mentions the file either way.
func (e *Extractor) Text(contentType, filename string, data []byte) string {
	kind, fn := dispatch(strings.ToLower(filepath.Ext(filename)), strings.ToLower(contentType))
	if fn == nil {
		return "[Unable to extract text from " + filename + "]"
	}

	text, err := fn(data)
	if err != nil {
		e.logger.Warn("document extraction failed",
			zap.String("filename", filename),
			zap.String("content_type", contentType),
			zap.Error(err),
		)
		return "[Failed to extract " + kind + " content]"
	}
	return text
}

func dispatch(ext, ct string) (string, extractFn) {
	switch ext {
	case ".pdf":
		return "PDF", extractPDF
	case ".docx", ".doc":
		return "Word document", extractDOCX
	case ".xlsx", ".xls":
		return "Excel", extractXLSX
	case ".csv":
		return "CSV", extractCSV
	case ".json":
		return "JSON", extractJSON
	}
	if _, ok := textExtensions[ext]; ok {
		return "text", extractText
	}

	switch ct {
	case "application/pdf":
		return "PDF", extractPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword":
		return "Word document", extractDOCX
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return "Excel", extractXLSX
	case "text/csv":
		return "CSV", extractCSV
	case "application/json":
		return "JSON", extractJSON
	}
	if strings.HasPrefix(ct, "text/") {
		return "text", extractText
	}

	return "", nil
}
