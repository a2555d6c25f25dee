package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const inMemoryCollection = "smartrag-chunks"

// InMemoryStore keeps documents in process memory and indexes chunk vectors
// in a chromem collection for ANN-style search.
type InMemoryStore struct {
	mu        sync.RWMutex
	docs      map[uuid.UUID]*types.Document
	hashIndex map[string]uuid.UUID
	db        *chromem.DB
	coll      *chromem.Collection
	logger    *zap.Logger
}

func NewInMemoryStore(logger *zap.Logger) (*InMemoryStore, error) {
	db := chromem.NewDB()
	coll, err := db.GetOrCreateCollection(inMemoryCollection, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, smarterrors.Wrap(err, "create in-memory collection")
	}
	return &InMemoryStore{
		docs:      make(map[uuid.UUID]*types.Document),
		hashIndex: make(map[string]uuid.UUID),
		db:        db,
		coll:      coll,
		logger:    logger,
	}, nil
}

// Embeddings are always precomputed by the embedder; the collection must
// never embed on its own.
func rejectEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("store does not embed; vector missing for add or query")
}

func (s *InMemoryStore) Name() string { return "InMemory" }

func (s *InMemoryStore) Add(ctx context.Context, doc *types.Document) (*types.Document, error) {
	hash := ContentHash(doc.Content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if hash != "" {
		if existingID, ok := s.hashIndex[hash]; ok {
			if existing, ok := s.docs[existingID]; ok {
				s.logger.Debug("Duplicate upload, returning original document",
					zap.String("document_id", existingID.String()),
					zap.String("file_name", existing.FileName))
				return existing, nil
			}
		}
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	for i := range doc.Chunks {
		chunk := &doc.Chunks[i]
		chunk.DocumentID = doc.ID
		if len(chunk.Embedding) == 0 {
			continue
		}
		err := s.coll.AddDocument(ctx, chromem.Document{
			ID:        chunk.ID.String(),
			Content:   chunk.Content,
			Embedding: chunk.Embedding,
			Metadata: map[string]string{
				"document_id": doc.ID.String(),
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
			},
		})
		if err != nil {
			return nil, smarterrors.Wrap(err, "index chunk vector")
		}
	}

	s.docs[doc.ID] = doc
	if hash != "" {
		s.hashIndex[hash] = doc.ID
	}
	return doc, nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, smarterrors.Wrapf(smarterrors.ErrNotFound, "document %s", id)
	}
	return doc, nil
}

func (s *InMemoryStore) GetAll(ctx context.Context) ([]*types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*types.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return smarterrors.Wrapf(smarterrors.ErrNotFound, "document %s", id)
	}

	var chunkIDs []string
	for _, c := range doc.Chunks {
		if len(c.Embedding) > 0 {
			chunkIDs = append(chunkIDs, c.ID.String())
		}
	}
	if len(chunkIDs) > 0 {
		if err := s.coll.Delete(ctx, nil, nil, chunkIDs...); err != nil {
			return smarterrors.Wrap(err, "remove chunk vectors")
		}
	}

	delete(s.docs, id)
	if hash := ContentHash(doc.Content); hash != "" {
		delete(s.hashIndex, hash)
	}
	return nil
}

func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *InMemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(inMemoryCollection); err != nil {
		return smarterrors.Wrap(err, "drop collection")
	}
	coll, err := s.db.GetOrCreateCollection(inMemoryCollection, nil, rejectEmbeddingFunc)
	if err != nil {
		return smarterrors.Wrap(err, "recreate collection")
	}
	s.coll = coll
	s.docs = make(map[uuid.UUID]*types.Document)
	s.hashIndex = make(map[string]uuid.UUID)
	return nil
}

func (s *InMemoryStore) Search(ctx context.Context, query string, queryEmbedding []float32, maxResults int) ([]types.Chunk, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[string]types.Chunk)
	fileNames := make(map[uuid.UUID]string, len(s.docs))
	for _, d := range s.docs {
		fileNames[d.ID] = d.FileName
		for _, c := range d.Chunks {
			byID[c.ID.String()] = c
		}
	}

	var out []types.Chunk
	seen := make(map[string]bool)

	if len(queryEmbedding) > 0 && s.coll.Count() > 0 {
		limit := min(maxResults, s.coll.Count())
		results, err := s.coll.QueryEmbedding(ctx, queryEmbedding, limit, nil, nil)
		if err != nil {
			return nil, smarterrors.Wrap(err, "vector query")
		}
		for _, res := range results {
			chunk, ok := byID[res.ID]
			if !ok {
				continue
			}
			chunk.RelevanceScore = clamp01(float64(res.Similarity))
			chunk.FileName = fileNames[chunk.DocumentID]
			out = append(out, chunk)
			seen[res.ID] = true
		}
	}

	// Keyword rank covers chunks without vectors and vector-less queries.
	if len(out) < maxResults {
		queryWords := textutil.ContentWords(query)
		var scored []types.Chunk
		for id, chunk := range byID {
			if seen[id] {
				continue
			}
			score := keywordScore(queryWords, chunk.Content)
			if score <= 0 {
				continue
			}
			chunk.RelevanceScore = clamp01(score)
			chunk.FileName = fileNames[chunk.DocumentID]
			scored = append(scored, chunk)
		}
		sort.Slice(scored, func(i, j int) bool {
			if scored[i].RelevanceScore == scored[j].RelevanceScore {
				return scored[i].ID.String() < scored[j].ID.String()
			}
			return scored[i].RelevanceScore > scored[j].RelevanceScore
		})
		for _, c := range scored {
			if len(out) >= maxResults {
				break
			}
			out = append(out, c)
		}
	}

	return out, nil
}
