package llmclient

import (
	"context"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"go.uber.org/zap"
)

// fallbackProvider tries the primary first, then each fallback exactly once
// when the previous provider reports unavailability. Other errors (bad
// input, cancellation) are never retried on a different provider.
type fallbackProvider struct {
	primary   Provider
	fallbacks []Provider
	logger    *zap.Logger
}

func withFallbacks(primary Provider, fallbacks []Provider, logger *zap.Logger) Provider {
	if len(fallbacks) == 0 {
		return primary
	}
	return &fallbackProvider{primary: primary, fallbacks: fallbacks, logger: logger}
}

func (f *fallbackProvider) Name() string  { return f.primary.Name() }
func (f *fallbackProvider) Model() string { return f.primary.Model() }

func (f *fallbackProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	text, err := f.primary.GenerateText(ctx, prompt)
	if err == nil || !smarterrors.IsProviderUnavailable(err) {
		return text, err
	}
	for _, p := range f.fallbacks {
		if ctx.Err() != nil {
			return "", smarterrors.Wrap(smarterrors.ErrCancelled, "fallback aborted")
		}
		f.logger.Warn("Primary provider unavailable, trying fallback",
			zap.String("fallback", p.Name()), zap.Error(err))
		text, err = p.GenerateText(ctx, prompt)
		if err == nil || !smarterrors.IsProviderUnavailable(err) {
			return text, err
		}
	}
	return "", err
}

func (f *fallbackProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.primary.GenerateEmbedding(ctx, text)
	if err == nil || !smarterrors.IsProviderUnavailable(err) {
		return vec, err
	}
	for _, p := range f.fallbacks {
		if ctx.Err() != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrCancelled, "fallback aborted")
		}
		f.logger.Warn("Primary embedding provider unavailable, trying fallback",
			zap.String("fallback", p.Name()), zap.Error(err))
		vec, err = p.GenerateEmbedding(ctx, text)
		if err == nil || !smarterrors.IsProviderUnavailable(err) {
			return vec, err
		}
	}
	return nil, err
}
