package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// CSVExporter renders a transcript into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the transcript, one row per
// turn.
func (e *CSVExporter) Render(t Transcript) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write([]string{"role", "sent_at", "content"}); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, entry := range t.Entries {
		record := []string{entry.Role, entry.SentAt.UTC().Format(time.RFC3339), entry.Content}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
