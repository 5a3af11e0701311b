package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

func TestAzureOpenAICompleteSuccess(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("api-key"))
		require.Contains(t, r.URL.Path, "/openai/deployments/gpt-4.1/chat/completions")
		require.Equal(t, "2025-01-01-preview", r.URL.Query().Get("api-version"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "assistant reply"}},
			},
		})
	}))
	defer server.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		APIVersion: "2025-01-01-preview",
	}, nil)

	reply, err := client.Complete(context.Background(), &Request{
		Model:              ModelGPT41,
		SystemInstructions: "be helpful",
		History: []Turn{
			{Role: "user", Content: "earlier question"},
			{Role: "assistant", Content: "earlier answer"},
		},
		UserMessage: "current question",
	})
	require.NoError(t, err)
	require.Equal(t, "assistant reply", reply)

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 4)
	first := messages[0].(map[string]interface{})
	require.Equal(t, "system", first["role"])
	last := messages[3].(map[string]interface{})
	require.Equal(t, "user", last["role"])
	require.Equal(t, "current question", last["content"])
}

func TestAzureOpenAICompleteWithImages(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{Endpoint: server.URL, APIKey: "k", APIVersion: "v"}, nil)

	_, err := client.Complete(context.Background(), &Request{
		Model:       ModelGPT41,
		UserMessage: "what is in this image",
		Images: []AttachmentContent{
			{Filename: "pic.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
		},
	})
	require.NoError(t, err)

	messages := captured["messages"].([]interface{})
	last := messages[len(messages)-1].(map[string]interface{})
	parts := last["content"].([]interface{})
	require.Len(t, parts, 2)

	imagePart := parts[1].(map[string]interface{})
	require.Equal(t, "image_url", imagePart["type"])
	imageURL := imagePart["image_url"].(map[string]interface{})
	require.Contains(t, imageURL["url"], "data:image/png;base64,")
	require.Equal(t, "high", imageURL["detail"])
}

func TestAzureOpenAIContextLengthExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "context_length_exceeded",
				"message": "too long",
			},
		})
	}))
	defer server.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{Endpoint: server.URL, APIKey: "k", APIVersion: "v"}, nil)

	_, err := client.Complete(context.Background(), &Request{Model: ModelGPT41, UserMessage: "hi"})
	require.True(t, appErrors.Is(err, appErrors.ErrContentTooLarge))
}

func TestAzureOpenAIProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "server_error", "message": "boom"},
		})
	}))
	defer server.Close()

	client := NewAzureOpenAIClient(AzureOpenAIConfig{Endpoint: server.URL, APIKey: "k", APIVersion: "v"}, nil)

	_, err := client.Complete(context.Background(), &Request{Model: ModelGPT41, UserMessage: "hi"})
	require.True(t, appErrors.Is(err, appErrors.ErrProvider))
}

func TestRouterDispatch(t *testing.T) {
	r := NewRouter(stubProvider("openai"), stubProvider("gemini"))

	out, err := r.Complete(context.Background(), &Request{Model: ModelGPT41Nano})
	require.NoError(t, err)
	require.Equal(t, "openai", out)

	out, err = r.Complete(context.Background(), &Request{Model: ModelGeminiFlash})
	require.NoError(t, err)
	require.Equal(t, "gemini", out)

	_, err = r.Complete(context.Background(), &Request{Model: "claude-3"})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

type stubProvider string

func (s stubProvider) Complete(ctx context.Context, req *Request) (string, error) {
	return string(s), nil
}
