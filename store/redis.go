package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisDocPrefix  = "smartrag:doc:"
	redisHashPrefix = "smartrag:hash:"
	redisDocSet     = "smartrag:docids"
)

// RedisStore persists documents as JSON values with a content-hash
// secondary index. Search scores vectors client-side; Redis is the
// durability layer, not an ANN index.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(cfg *config.Config, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Name() string { return "Redis" }

func (s *RedisStore) Add(ctx context.Context, doc *types.Document) (*types.Document, error) {
	hash := ContentHash(doc.Content)
	if hash != "" {
		existingID, err := s.client.Get(ctx, redisHashPrefix+hash).Result()
		if err == nil && existingID != "" {
			if id, parseErr := uuid.Parse(existingID); parseErr == nil {
				if existing, getErr := s.GetByID(ctx, id); getErr == nil {
					s.logger.Debug("Duplicate upload, returning original document",
						zap.String("document_id", existingID))
					return existing, nil
				}
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	for i := range doc.Chunks {
		doc.Chunks[i].DocumentID = doc.ID
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, smarterrors.Wrap(err, "marshal document")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisDocPrefix+doc.ID.String(), payload, 0)
	pipe.SAdd(ctx, redisDocSet, doc.ID.String())
	if hash != "" {
		pipe.Set(ctx, redisHashPrefix+hash, doc.ID.String(), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return doc, nil
}

func (s *RedisStore) GetByID(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	data, err := s.client.Get(ctx, redisDocPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, smarterrors.Wrapf(smarterrors.ErrNotFound, "document %s", id)
		}
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, smarterrors.Wrap(err, "unmarshal document")
	}
	return &doc, nil
}

func (s *RedisStore) GetAll(ctx context.Context) ([]*types.Document, error) {
	ids, err := s.client.SMembers(ctx, redisDocSet).Result()
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	docs := make([]*types.Document, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		doc, err := s.GetByID(ctx, id)
		if err != nil {
			if smarterrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisDocPrefix+id.String())
	pipe.SRem(ctx, redisDocSet, id.String())
	if hash := ContentHash(doc.Content); hash != "" {
		pipe.Del(ctx, redisHashPrefix+hash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, redisDocSet).Result()
	if err != nil {
		return 0, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return int(n), nil
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, redisDocSet).Result()
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	pipe := s.client.TxPipeline()
	for _, idStr := range ids {
		pipe.Del(ctx, redisDocPrefix+idStr)
	}
	keys, err := s.client.Keys(ctx, redisHashPrefix+"*").Result()
	if err == nil {
		for _, k := range keys {
			pipe.Del(ctx, k)
		}
	}
	pipe.Del(ctx, redisDocSet)
	if _, err := pipe.Exec(ctx); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *RedisStore) Search(ctx context.Context, query string, queryEmbedding []float32, maxResults int) ([]types.Chunk, error) {
	if maxResults <= 0 {
		return nil, nil
	}
	docs, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	queryWords := textutil.ContentWords(query)
	var scored []types.Chunk
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			var score float64
			if len(queryEmbedding) > 0 && len(chunk.Embedding) > 0 {
				score = clamp01(embedding.Cosine(queryEmbedding, chunk.Embedding))
			} else {
				score = clamp01(keywordScore(queryWords, chunk.Content))
			}
			if score <= 0 {
				continue
			}
			chunk.RelevanceScore = score
			chunk.FileName = doc.FileName
			scored = append(scored, chunk)
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].RelevanceScore == scored[j].RelevanceScore {
			return scored[i].ID.String() < scored[j].ID.String()
		}
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored, nil
}
