package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

// AzureOpenAIConfig parameterises the Azure chat completions client.
// Model names double as deployment names.
type AzureOpenAIConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// AzureOpenAIClient talks to the Azure OpenAI chat completions API.
type AzureOpenAIClient struct {
	cfg    AzureOpenAIConfig
	http   *http.Client
	logger *zap.Logger
}

var _ Provider = (*AzureOpenAIClient)(nil)

func NewAzureOpenAIClient(cfg AzureOpenAIConfig, logger *zap.Logger) *AzureOpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &AzureOpenAIClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAITextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImagePart struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type openAIRequest struct {
	Messages []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the assembled request. Document text is framed into
// the final user turn; images ride along as data URLs.
func (c *AzureOpenAIClient) Complete(ctx context.Context, req *Request) (string, error) {
	messages := make([]openAIMessage, 0, len(req.History)+2)

	if req.SystemInstructions != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemInstructions})
	}
	for _, turn := range req.History {
		messages = append(messages, openAIMessage{Role: turn.Role, Content: turn.Content})
	}

	userText := FrameDocuments(req.Documents, req.UserMessage)

	if len(req.Images) > 0 {
		parts := make([]interface{}, 0, len(req.Images)+1)
		parts = append(parts, openAITextPart{Type: "text", Text: userText})
		for _, img := range req.Images {
			dataURL := fmt.Sprintf("data:%s;base64,%s", img.ContentType, base64.StdEncoding.EncodeToString(img.Data))
			parts = append(parts, openAIImagePart{
				Type:     "image_url",
				ImageURL: openAIImageURL{URL: dataURL, Detail: "high"},
			})
		}
		messages = append(messages, openAIMessage{Role: "user", Content: parts})
	} else {
		messages = append(messages, openAIMessage{Role: "user", Content: userText})
	}

	body, err := json.Marshal(openAIRequest{Messages: messages})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode completion request")
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), req.Model, c.cfg.APIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "azure openai request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "failed to read completion response")
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "failed to decode completion response")
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Code == "context_length_exceeded" {
			return "", appErrors.ErrContentTooLarge
		}
		msg := "azure openai returned an error"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		c.logger.Warn("azure openai error",
			zap.Int("status", resp.StatusCode),
			zap.String("model", req.Model),
			zap.String("message", msg),
		)
		return "", appErrors.Clone(appErrors.ErrProvider, msg)
	}

	if len(parsed.Choices) == 0 {
		return "", appErrors.Clone(appErrors.ErrProvider, "azure openai returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
