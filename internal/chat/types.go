package chat

import "context"

// Supported model routes.
const (
	ModelGPT41       = "gpt-4.1"
	ModelGPT41Nano   = "gpt-4.1-nano"
	ModelGeminiFlash = "gemini-2.0-flash-exp"
)

// DefaultModel is used when a conversation has no explicit choice.
const DefaultModel = ModelGPT41

// AttachmentContent carries one attachment prepared for prompt
// assembly. Data holds the raw stored bytes; Text holds extracted
// document text where applicable.
type AttachmentContent struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
	Text        string
}

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role    string
	Content string
}

// Request is a fully resolved completion request handed to a provider.
type Request struct {
	Model              string
	SystemInstructions string
	History            []Turn
	UserMessage        string
	Images             []AttachmentContent
	Documents          []AttachmentContent
}

// Provider produces an assistant reply for a request.
type Provider interface {
	Complete(ctx context.Context, req *Request) (string, error)
}
