package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTranscript() Transcript {
	sent := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return Transcript{
		Title: "Quarterly review",
		Model: "gpt-4.1",
		Entries: []Entry{
			{Role: "user", SentAt: sent, Content: "Summarise the attached report"},
			{Role: "assistant", SentAt: sent.Add(time.Second), Content: "The report covers three topics,\nwith commas and newlines."},
		},
	}
}

func TestCSVExporterRendersRows(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleTranscript())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"role", "sent_at", "content"}, records[0])
	assert.Equal(t, "user", records[1][0])
	assert.Equal(t, "2026-03-14T09:30:00Z", records[1][1])
	assert.Equal(t, "The report covers three topics,\nwith commas and newlines.", records[2][2])
}

func TestCSVExporterEmptyTranscript(t *testing.T) {
	data, err := NewCSVExporter().Render(Transcript{Title: "empty"})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleTranscript())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
