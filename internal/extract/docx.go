package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX pulls paragraph and table text out of word/document.xml.
// The OOXML schema nests runs inside paragraphs; flattening <w:t>
// elements per <w:p> is enough for prompt context. Table rows are
// collected separately and appended as pipe-delimited lines.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return flattenDocumentXML(rc)
}

func flattenDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		b          strings.Builder
		tables     strings.Builder
		cell       strings.Builder
		rowCells   []string
		inText     bool
		tableDepth int
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth > 0 {
					rowCells = rowCells[:0]
				}
			case "tc":
				cell.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tableDepth == 0 {
					b.WriteString("\n")
				}
			case "tc":
				if tableDepth > 0 {
					rowCells = append(rowCells, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tableDepth > 0 && len(rowCells) > 0 {
					tables.WriteString(strings.Join(rowCells, " | "))
					tables.WriteString("\n")
				}
			case "tbl":
				tableDepth--
			}
		case xml.CharData:
			if !inText {
				break
			}
			if tableDepth > 0 {
				cell.Write(t)
			} else {
				b.Write(t)
			}
		}
	}

	result := strings.TrimSpace(b.String())
	if tableText := strings.TrimSpace(tables.String()); tableText != "" {
		if result != "" {
			result += "\n\n"
		}
		result += tableText
	}
	if result == "" {
		return "", fmt.Errorf("docx contains no text")
	}
	return result, nil
}
