package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		b.WriteString("Sheet: ")
		b.WriteString(sheet)
		b.WriteString("\n")

		// Blank rows are skipped entirely; only rows with data count
		// against the cap.
		written := 0
		omitted := 0
		for _, row := range rows {
			if emptyRow(row) {
				continue
			}
			if written >= maxSheetRows {
				omitted++
				continue
			}
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
			written++
		}
		if omitted > 0 {
			b.WriteString(fmt.Sprintf("[... %d more rows omitted ...]\n", omitted))
		}
		b.WriteString("\n")
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("xlsx contains no data")
	}
	return result, nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
