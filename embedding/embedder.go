// Package embedding wraps an AI provider to produce query and chunk vectors
// with batching, caching, and rate limiting.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBatchSize = 16

// Embedder produces fixed-dimension vectors. Identical texts hit an LRU
// cache instead of the provider; a token-bucket limiter enforces the
// configured minimum interval between provider calls.
type Embedder struct {
	cfg       *config.Config
	provider  llmclient.Provider
	logger    *zap.Logger
	limiter   *rate.Limiter
	cache     *lru.Cache
	batchSize int
}

func New(cfg *config.Config, provider llmclient.Provider, logger *zap.Logger) (*Embedder, error) {
	cacheSize := cfg.EmbeddingCacheSize
	if cacheSize <= 0 {
		cacheSize = 2048
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, smarterrors.Wrap(err, "create embedding cache")
	}

	var limiter *rate.Limiter
	if cfg.EmbeddingMinIntervalMs > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.EmbeddingMinIntervalMs), 1)
	}

	batchSize := cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Embedder{
		cfg:       cfg,
		provider:  provider,
		logger:    logger,
		limiter:   limiter,
		cache:     cache,
		batchSize: batchSize,
	}, nil
}

// Embed returns the vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, smarterrors.Wrap(smarterrors.ErrInvalidInput, "cannot embed empty text")
	}

	key := cacheKey(text)
	if cached, ok := e.cache.Get(key); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrCancelled, "embedding rate wait aborted")
		}
	}

	vec, err := e.provider.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts in provider-cap batches, preserving input order.
// A nil slot marks a text whose embedding failed softly (provider without
// embeddings); hard failures abort the batch.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return nil, smarterrors.Wrap(smarterrors.ErrCancelled, "embedding batch aborted")
			}
			vec, err := e.Embed(ctx, texts[i])
			if err != nil {
				if smarterrors.IsProviderUnavailable(err) {
					// Keyword-only ranking still works without vectors.
					e.logger.Warn("Embedding unavailable for batch item",
						zap.Int("index", i), zap.Error(err))
					continue
				}
				return nil, err
			}
			vectors[i] = vec
		}
	}
	return vectors, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
