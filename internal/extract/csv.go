package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

func extractCSV(data []byte) (string, error) {
	decoded, err := extractText(data)
	if err != nil {
		return "", err
	}

	reader := csv.NewReader(strings.NewReader(decoded))
	reader.FieldsPerRecord = -1

	var (
		b    strings.Builder
		rows int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}

		if rows >= maxCSVRows {
			b.WriteString("[... additional rows omitted ...]\n")
			break
		}
		b.WriteString(strings.Join(record, " | "))
		b.WriteString("\n")
		rows++
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("csv contains no rows")
	}
	return result, nil
}
