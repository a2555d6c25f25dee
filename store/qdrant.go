package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// QdrantStore keeps one point per chunk in a Qdrant collection. The full
// document record rides on its chunk-0 point's payload, so the collection
// is self-contained and survives restarts.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *zap.Logger
}

func NewQdrantStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
	})
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}

	s := &QdrantStore{
		client:     client,
		collection: cfg.QdrantCollection,
		dimension:  cfg.EmbeddingDimension,
		logger:     logger,
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) Name() string { return "Qdrant" }

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *QdrantStore) Add(ctx context.Context, doc *types.Document) (*types.Document, error) {
	hash := ContentHash(doc.Content)
	if hash != "" {
		if existing, err := s.findByHash(ctx, hash); err != nil {
			return nil, err
		} else if existing != nil {
			s.logger.Debug("Duplicate upload, returning original document",
				zap.String("document_id", existing.ID.String()))
			return existing, nil
		}
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, smarterrors.Wrap(err, "marshal document")
	}

	points := make([]*qdrant.PointStruct, 0, len(doc.Chunks))
	for i := range doc.Chunks {
		chunk := &doc.Chunks[i]
		chunk.DocumentID = doc.ID

		vector := chunk.Embedding
		if len(vector) == 0 {
			// Qdrant points require a vector; embedding-less chunks get a
			// zero vector and rely on keyword rescoring.
			vector = make([]float32, s.dimension)
		}

		payload := map[string]any{
			"document_id":    doc.ID.String(),
			"chunk_index":    int64(chunk.ChunkIndex),
			"content":        chunk.Content,
			"start_position": int64(chunk.StartPosition),
			"end_position":   int64(chunk.EndPosition),
			"file_name":      doc.FileName,
			"document_type":  string(chunk.DocumentType),
			"chunk_id":       chunk.ID.String(),
		}
		if chunk.ChunkIndex == 0 {
			payload["document"] = string(docJSON)
			payload["content_hash"] = hash
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID.String()),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return doc, nil
}

func (s *QdrantStore) findByHash(ctx context.Context, hash string) (*types.Document, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("content_hash", hash)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if len(points) == 0 {
		return nil, nil
	}
	return documentFromPayload(points[0].Payload)
}

func documentFromPayload(payload map[string]*qdrant.Value) (*types.Document, error) {
	raw := payload["document"].GetStringValue()
	if raw == "" {
		return nil, nil
	}
	var doc types.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, smarterrors.Wrap(err, "unmarshal document payload")
	}
	return &doc, nil
}

func (s *QdrantStore) GetByID(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", id.String()),
				qdrant.NewMatchInt("chunk_index", 0),
			},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if len(points) == 0 {
		return nil, smarterrors.Wrapf(smarterrors.ErrNotFound, "document %s", id)
	}
	doc, err := documentFromPayload(points[0].Payload)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, smarterrors.Wrapf(smarterrors.ErrNotFound, "document %s", id)
	}
	return doc, nil
}

func (s *QdrantStore) GetAll(ctx context.Context) ([]*types.Document, error) {
	var docs []*types.Document
	var offset *qdrant.PointId
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatchInt("chunk_index", 0)},
			},
			Limit:       qdrant.PtrOf(uint32(256)),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		if len(points) == 0 {
			break
		}
		for _, p := range points {
			doc, err := documentFromPayload(p.Payload)
			if err != nil {
				return nil, err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		if len(points) < 256 {
			break
		}
		offset = points[len(points)-1].Id
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func (s *QdrantStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", id.String())},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchInt("chunk_index", 0)},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return int(n), nil
}

func (s *QdrantStore) ClearAll(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return s.ensureCollection(ctx)
}

func (s *QdrantStore) Search(ctx context.Context, query string, queryEmbedding []float32, maxResults int) ([]types.Chunk, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	if len(queryEmbedding) > 0 {
		points, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.collection,
			Query:          qdrant.NewQuery(queryEmbedding...),
			Limit:          qdrant.PtrOf(uint64(maxResults)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		chunks := make([]types.Chunk, 0, len(points))
		for _, p := range points {
			chunk := chunkFromPayload(p.Payload)
			chunk.RelevanceScore = clamp01(float64(p.GetScore()))
			if chunk.RelevanceScore <= 0 {
				continue
			}
			chunks = append(chunks, chunk)
		}
		return chunks, nil
	}

	// Keyword fallback: rank all chunks client-side.
	queryWords := textutil.ContentWords(query)
	docs, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var scored []types.Chunk
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			score := keywordScore(queryWords, chunk.Content)
			if score <= 0 {
				continue
			}
			chunk.RelevanceScore = clamp01(score)
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

func chunkFromPayload(payload map[string]*qdrant.Value) types.Chunk {
	var chunk types.Chunk
	if idStr := payload["chunk_id"].GetStringValue(); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			chunk.ID = id
		}
	}
	if idStr := payload["document_id"].GetStringValue(); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			chunk.DocumentID = id
		}
	}
	chunk.ChunkIndex = int(payload["chunk_index"].GetIntegerValue())
	chunk.Content = payload["content"].GetStringValue()
	chunk.StartPosition = int(payload["start_position"].GetIntegerValue())
	chunk.EndPosition = int(payload["end_position"].GetIntegerValue())
	chunk.FileName = payload["file_name"].GetStringValue()
	chunk.DocumentType = types.DocumentType(payload["document_type"].GetStringValue())
	return chunk
}
