package chat

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

// GeminiConfig parameterises the Gemini provider.
type GeminiConfig struct {
	APIKey    string
	PollEvery time.Duration
	PollMax   time.Duration
}

// GeminiClient routes completions through the Gemini API. Documents are
// uploaded as native files so Gemini parses them itself; images ride
// inline as blobs.
type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *zap.Logger
}

var _ Provider = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.PollMax <= 0 {
		cfg.PollMax = time.Minute
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg, logger: logger}, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func (c *GeminiClient) Complete(ctx context.Context, req *Request) (string, error) {
	model := c.client.GenerativeModel(req.Model)
	if req.SystemInstructions != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstructions)}}
	}

	uploaded, err := c.uploadDocuments(ctx, req.Documents)
	if err != nil {
		return "", err
	}
	defer c.cleanupFiles(uploaded)

	session := model.StartChat()
	session.History = historyToContents(req.History)

	parts := make([]genai.Part, 0, len(uploaded)+len(req.Images)+1)
	for _, f := range uploaded {
		parts = append(parts, genai.FileData{MIMEType: f.MIMEType, URI: f.URI})
	}
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.ContentType, Data: img.Data})
	}
	parts = append(parts, genai.Text(req.UserMessage))

	resp, err := session.SendMessage(ctx, parts...)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "gemini request failed")
	}

	return flattenCandidates(resp)
}

// uploadDocuments pushes raw document bytes to the Gemini file store
// and waits for each to become ACTIVE. On any failure every file that
// made it up is removed.
func (c *GeminiClient) uploadDocuments(ctx context.Context, docs []AttachmentContent) ([]*genai.File, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	uploaded := make([]*genai.File, 0, len(docs))
	for _, doc := range docs {
		f, err := c.client.UploadFile(ctx, "", bytes.NewReader(doc.Data), &genai.UploadFileOptions{
			DisplayName: doc.Filename,
			MIMEType:    doc.ContentType,
		})
		if err != nil {
			c.cleanupFiles(uploaded)
			return nil, appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "gemini file upload failed")
		}

		active, err := c.waitForActive(ctx, f)
		if err != nil {
			c.cleanupFiles(append(uploaded, f))
			return nil, err
		}
		uploaded = append(uploaded, active)
	}
	return uploaded, nil
}

func (c *GeminiClient) waitForActive(ctx context.Context, f *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(c.cfg.PollMax)

	for f.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, appErrors.Clone(appErrors.ErrProvider, "gemini file processing timed out")
		}
		select {
		case <-ctx.Done():
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "gemini file processing interrupted")
		case <-time.After(c.cfg.PollEvery):
		}

		refreshed, err := c.client.GetFile(ctx, f.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "gemini file status check failed")
		}
		f = refreshed
	}

	if f.State != genai.FileStateActive {
		return nil, appErrors.Clone(appErrors.ErrProvider, fmt.Sprintf("gemini file entered state %v", f.State))
	}
	return f, nil
}

// cleanupFiles removes uploaded files best-effort; Gemini would expire
// them anyway but there is no reason to leave them around.
func (c *GeminiClient) cleanupFiles(uploadedFiles []*genai.File) {
	for _, f := range uploadedFiles {
		if f == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.client.DeleteFile(ctx, f.Name); err != nil {
			c.logger.Warn("failed to delete gemini file", zap.String("file", f.Name), zap.Error(err))
		}
		cancel()
	}
}

func historyToContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return contents
}

func flattenCandidates(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", appErrors.Clone(appErrors.ErrProvider, "gemini returned no candidates")
	}

	var b bytes.Buffer
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", appErrors.Clone(appErrors.ErrProvider, "gemini returned no text")
	}
	return b.String(), nil
}
