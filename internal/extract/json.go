package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func extractJSON(data []byte) (string, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return "", fmt.Errorf("render json: %w", err)
	}

	result := buf.String()
	if len(result) > maxJSONChars {
		result = result[:maxJSONChars] + "\n[... JSON truncated ...]"
	}
	return result, nil
}
