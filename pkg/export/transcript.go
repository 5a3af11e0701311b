package export

import "time"

// Entry is a single turn of a conversation transcript.
type Entry struct {
	Role    string
	SentAt  time.Time
	Content string
}

// Transcript is an export-ready view of a conversation.
type Transcript struct {
	Title   string
	Model   string
	Entries []Entry
}
