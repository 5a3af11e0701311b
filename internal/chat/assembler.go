package chat

import (
	"strings"
)

const (
	docsHeading      = "## Attached Documents:"
	userHeading      = "## User Message:"
	docHeadingPrefix = "### Document: "
	docSeparator     = "\n\n---\n\n"

	truncationMarker = "[... content truncated due to length ...]"

	// truncationMargin reserves room for the marker and framing so a
	// truncated document never overshoots its slice of the budget.
	truncationMargin = 20

	historyLimitWithDocs = 10
	historyLimitDefault  = 20
)

// Assembler shapes attachments and history into the prompt sent to a
// provider, keeping document text inside the configured token budget.
type Assembler struct {
	tokenizer *Tokenizer
	docBudget int
}

func NewAssembler(tokenizer *Tokenizer, docBudget int) *Assembler {
	if tokenizer == nil {
		tokenizer = NewTokenizer()
	}
	if docBudget <= 0 {
		docBudget = 8000
	}
	return &Assembler{tokenizer: tokenizer, docBudget: docBudget}
}

// HistoryLimit returns how many prior turns to include. Documents eat
// prompt space, so turns are halved when any are attached.
func (a *Assembler) HistoryLimit(hasDocuments bool) int {
	if hasDocuments {
		return historyLimitWithDocs
	}
	return historyLimitDefault
}

// FitDocuments truncates each document so the set fits the overall
// budget. The budget is split evenly across documents.
func (a *Assembler) FitDocuments(docs []AttachmentContent) []AttachmentContent {
	if len(docs) == 0 {
		return docs
	}

	perDoc := a.docBudget/len(docs) - truncationMargin
	if perDoc < 1 {
		perDoc = 1
	}

	fitted := make([]AttachmentContent, len(docs))
	for i, doc := range docs {
		truncated, cut := a.tokenizer.Truncate(doc.Text, perDoc)
		if cut {
			truncated += "\n" + truncationMarker
		}
		doc.Text = truncated
		fitted[i] = doc
	}
	return fitted
}

// FrameDocuments renders the user turn, framing document sections ahead
// of the message itself when documents are attached. Providers that
// accept documents natively skip this and send raw bytes instead.
func FrameDocuments(docs []AttachmentContent, userMessage string) string {
	if len(docs) == 0 {
		return userMessage
	}

	sections := make([]string, 0, len(docs))
	for _, doc := range docs {
		sections = append(sections, docHeadingPrefix+doc.Filename+"\n\n"+doc.Text)
	}

	var b strings.Builder
	b.WriteString(docsHeading)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, docSeparator))
	b.WriteString("\n\n")
	b.WriteString(userHeading)
	b.WriteString("\n\n")
	b.WriteString(userMessage)
	return b.String()
}

// TailTurns returns the most recent limit turns from history.
func TailTurns(history []Turn, limit int) []Turn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
