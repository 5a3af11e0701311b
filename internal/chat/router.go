package chat

import (
	"context"
	"strings"

	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

// Router dispatches completion requests to the provider backing the
// requested model.
type Router struct {
	openai Provider
	gemini Provider
}

var _ Provider = (*Router)(nil)

func NewRouter(openai, gemini Provider) *Router {
	return &Router{openai: openai, gemini: gemini}
}

func (r *Router) Complete(ctx context.Context, req *Request) (string, error) {
	provider, err := r.providerFor(req.Model)
	if err != nil {
		return "", err
	}
	return provider.Complete(ctx, req)
}

func (r *Router) providerFor(model string) (Provider, error) {
	switch {
	case strings.HasPrefix(model, "gemini"):
		if r.gemini == nil {
			return nil, appErrors.Clone(appErrors.ErrProvider, "gemini provider not configured")
		}
		return r.gemini, nil
	case model == ModelGPT41, model == ModelGPT41Nano, strings.HasPrefix(model, "gpt-"):
		if r.openai == nil {
			return nil, appErrors.Clone(appErrors.ErrProvider, "openai provider not configured")
		}
		return r.openai, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported model: "+model)
	}
}
