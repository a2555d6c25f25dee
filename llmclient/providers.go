package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"go.uber.org/zap"
)

// openAIProvider speaks the OpenAI chat/embeddings API. Azure OpenAI and
// custom OpenAI-compatible servers reuse it with a different base URL.
type openAIProvider struct {
	Client
	name    string
	baseURL string
	apiKey  string
}

func newOpenAI(cfg *config.Config, logger *zap.Logger, baseURL, apiKey, name string) *openAIProvider {
	return &openAIProvider{
		Client:  newClient(cfg, logger),
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (p *openAIProvider) Name() string  { return p.name }
func (p *openAIProvider) Model() string { return p.cfg.Model }

type openAIChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := openAIChatRequest{
		Model:    p.cfg.Model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
	respBody, err := p.postJSON(ctx, p.baseURL+"/v1/chat/completions", p.headers(), body)
	if err != nil {
		return "", err
	}
	var cr openAIChatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}
	return cr.Choices[0].Message.Content, nil
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	body := openAIEmbeddingRequest{Model: p.cfg.EmbeddingModel, Input: text}
	respBody, err := p.postJSON(ctx, p.baseURL+"/v1/embeddings", p.headers(), body)
	if err != nil {
		return nil, err
	}
	var er openAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(er.Data) == 0 || len(er.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return er.Data[0].Embedding, nil
}

func (p *openAIProvider) headers() map[string]string {
	h := map[string]string{}
	if p.apiKey != "" {
		h["Authorization"] = "Bearer " + p.apiKey
		// Azure also accepts the key as a dedicated header.
		if p.name == config.ProviderAzureOpenAI {
			h["api-key"] = p.apiKey
		}
	}
	return h
}

// anthropicProvider speaks the Anthropic messages API. Anthropic has no
// embeddings endpoint; embedding calls report unavailability and the scorer
// degrades to keyword-only ranking.
type anthropicProvider struct {
	Client
}

func newAnthropic(cfg *config.Config, logger *zap.Logger) *anthropicProvider {
	return &anthropicProvider{Client: newClient(cfg, logger)}
}

func (p *anthropicProvider) Name() string  { return config.ProviderAnthropic }
func (p *anthropicProvider) Model() string { return p.cfg.Model }

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := anthropicRequest{
		Model:     p.cfg.Model,
		MaxTokens: 4096,
		Messages:  []Message{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         p.cfg.AnthropicAPIKey,
		"anthropic-version": "2023-06-01",
	}
	respBody, err := p.postJSON(ctx, "https://api.anthropic.com/v1/messages", headers, body)
	if err != nil {
		return "", err
	}
	var ar anthropicResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(ar.Content) == 0 {
		return "", fmt.Errorf("no content in anthropic response")
	}
	return ar.Content[0].Text, nil
}

func (p *anthropicProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, smarterrors.Wrap(smarterrors.ErrProviderUnavailable, "anthropic does not provide embeddings")
}

// geminiProvider speaks the Google Generative Language API.
type geminiProvider struct {
	Client
}

func newGemini(cfg *config.Config, logger *zap.Logger) *geminiProvider {
	return &geminiProvider{Client: newClient(cfg, logger)}
}

func (p *geminiProvider) Name() string  { return config.ProviderGemini }
func (p *geminiProvider) Model() string { return p.cfg.Model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

func (p *geminiProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, p.cfg.Model, p.cfg.GeminiAPIKey)
	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	respBody, err := p.postJSON(ctx, url, nil, body)
	if err != nil {
		return "", err
	}
	var gr geminiGenerateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

type geminiEmbedRequest struct {
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *geminiProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	model := p.cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-004"
	}
	url := fmt.Sprintf("%s/%s:embedContent?key=%s", geminiBaseURL, model, p.cfg.GeminiAPIKey)
	body := geminiEmbedRequest{Content: geminiContent{Parts: []geminiPart{{Text: text}}}}
	respBody, err := p.postJSON(ctx, url, nil, body)
	if err != nil {
		return nil, err
	}
	var er geminiEmbedResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("decode gemini embedding response: %w", err)
	}
	if len(er.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in gemini response")
	}
	return er.Embedding.Values, nil
}
