// Package llmclient provides the AI provider contract and HTTP
// implementations for OpenAI, Anthropic, Gemini, Azure OpenAI, and
// OpenAI-compatible custom endpoints.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"go.uber.org/zap"
)

// Provider is the narrow AI collaborator contract consumed by the
// orchestrator. Implementations must be safe for concurrent callers.
type Provider interface {
	Name() string
	Model() string
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Message is one chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client carries the shared HTTP machinery: timeouts, retry policy, and
// request plumbing. Provider implementations embed it.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func newClient(cfg *config.Config, logger *zap.Logger) Client {
	timeout := cfg.LLMRequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// postJSON sends the request with the configured retry policy. Responses
// with status 429 or >= 500 are retried; context errors are terminal.
func (c *Client) postJSON(ctx context.Context, url string, headers map[string]string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	attempts := c.cfg.MaxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, smarterrors.Wrap(smarterrors.ErrCancelled, "llm request aborted")
			}
			lastErr = err
			c.sleepBeforeRetry(ctx, attempt)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			c.sleepBeforeRetry(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("provider status %s", resp.Status)
			c.logger.Warn("Provider returned retryable status",
				zap.String("status", resp.Status),
				zap.Int("attempt", attempt))
			c.sleepBeforeRetry(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Body may echo the prompt; keep error surface small.
			return nil, fmt.Errorf("provider status %s", resp.Status)
		}
		return respBody, nil
	}

	return nil, smarterrors.Wrapf(smarterrors.ErrProviderUnavailable,
		"request failed after %d attempts: %v", attempts, lastErr)
}

func (c *Client) sleepBeforeRetry(ctx context.Context, attempt int) {
	delay := c.cfg.RetryDelay(attempt)
	if delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// New builds the provider named by providerName using the configured
// credentials.
func New(cfg *config.Config, providerName string, logger *zap.Logger) (Provider, error) {
	switch providerName {
	case config.ProviderOpenAI:
		return newOpenAI(cfg, logger, "https://api.openai.com", cfg.OpenAIAPIKey, config.ProviderOpenAI), nil
	case config.ProviderAzureOpenAI:
		if cfg.AzureOpenAIEndpoint == "" {
			return nil, smarterrors.Wrap(smarterrors.ErrInvalidConfiguration, "azure openai endpoint not set")
		}
		return newOpenAI(cfg, logger, cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIKey, config.ProviderAzureOpenAI), nil
	case config.ProviderCustom:
		if cfg.CustomEndpoint == "" {
			return nil, smarterrors.Wrap(smarterrors.ErrInvalidConfiguration, "custom endpoint not set")
		}
		return newOpenAI(cfg, logger, cfg.CustomEndpoint, cfg.CustomAPIKey, config.ProviderCustom), nil
	case config.ProviderAnthropic:
		return newAnthropic(cfg, logger), nil
	case config.ProviderGemini:
		return newGemini(cfg, logger), nil
	default:
		return nil, smarterrors.Wrapf(smarterrors.ErrInvalidConfiguration, "unknown ai provider %q", providerName)
	}
}

// NewWithFallbacks builds the primary provider plus the configured fallback
// chain. When fallbacks are disabled the primary is returned bare.
func NewWithFallbacks(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	primary, err := New(cfg, cfg.AIProvider, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.EnableFallbackProviders || len(cfg.FallbackAIProviders) == 0 {
		return primary, nil
	}

	fallbacks := make([]Provider, 0, len(cfg.FallbackAIProviders))
	for _, name := range cfg.FallbackAIProviders {
		if name == cfg.AIProvider {
			continue
		}
		p, err := New(cfg, name, logger)
		if err != nil {
			logger.Warn("Skipping misconfigured fallback provider",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		fallbacks = append(fallbacks, p)
	}
	return withFallbacks(primary, fallbacks, logger), nil
}
