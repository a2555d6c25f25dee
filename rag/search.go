package rag

import (
	"context"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/store"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

// SearchResult is the document side's contribution to a response: the
// relevant documents, their context-expanded chunks, and the assembled
// context text.
type SearchResult struct {
	Documents []ScoredDocument
	Expanded  []types.Chunk
	Sources   []types.SearchSource
	Context   string
}

// HasMatches reports whether any document survived scoring.
func (r *SearchResult) HasMatches() bool { return r != nil && len(r.Documents) > 0 }

// Strong reports whether the best document clears the short-circuit
// threshold.
func (r *SearchResult) Strong() bool {
	return r.HasMatches() && r.Documents[0].Strong()
}

// Searcher runs the document retrieval pipeline: embed the query, pull
// candidates from the store, rescore, aggregate, expand, assemble context.
type Searcher struct {
	store    store.DocumentStore
	embedder *embedding.Embedder
	scorer   *Scorer
	cfg      *config.Config
	logger   *zap.Logger
}

func NewSearcher(docStore store.DocumentStore, embedder *embedding.Embedder, cfg *config.Config, logger *zap.Logger) *Searcher {
	return &Searcher{
		store:    docStore,
		embedder: embedder,
		scorer:   NewScorer(cfg.TopChunksPerDoc),
		cfg:      cfg,
		logger:   logger,
	}
}

// Search executes the full document pipeline for a cleaned (tag-stripped)
// query. An unreachable embedding provider degrades to keyword-only
// scoring rather than failing the search.
func (s *Searcher) Search(ctx context.Context, query string, opts types.SearchOptions) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, smarterrors.Wrap(smarterrors.ErrInvalidInput, "empty query")
	}

	var queryEmbedding []float32
	if vec, err := s.embedder.Embed(ctx, query); err != nil {
		if smarterrors.IsCancelled(err) {
			return nil, err
		}
		s.logger.Warn("Query embedding unavailable, scoring by keywords only", zap.Error(err))
	} else {
		queryEmbedding = vec
	}

	maxResults := s.cfg.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 5
	}
	candidateLimit := maxResults * 4
	if candidateLimit < 20 {
		candidateLimit = 20
	}

	candidates, err := s.store.Search(ctx, query, queryEmbedding, candidateLimit)
	if err != nil {
		return nil, err
	}
	candidates = filterCandidates(candidates, opts)

	scored := s.scorer.ScoreChunks(query, queryEmbedding, candidates)
	if len(scored) == 0 {
		return &SearchResult{}, nil
	}
	documents := s.scorer.AggregateDocuments(query, scored)

	window := SelectWindow(query, scored)
	result := &SearchResult{Documents: documents}
	for _, scoredDoc := range documents {
		doc, err := s.store.GetByID(ctx, scoredDoc.DocumentID)
		if err != nil {
			s.logger.Warn("Relevant document vanished mid-search",
				zap.String("document_id", scoredDoc.DocumentID.String()),
				zap.Error(err))
			continue
		}
		expanded := Expand(doc, scoredDoc.Chunks, window)
		result.Expanded = append(result.Expanded, expanded...)
		for _, chunk := range scoredDoc.Chunks {
			result.Sources = append(result.Sources, BuildChunkSource(doc, chunk))
		}
	}

	maxBytes := s.cfg.ContextMaxBytes
	if maxBytes <= 0 {
		maxBytes = 16000
	}
	result.Context = BuildLimitedContext(result.Expanded, maxBytes)

	s.logger.Debug("Document search complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("scored", len(scored)),
		zap.Int("documents", len(documents)),
		zap.Int("expansion_window", window),
		zap.Bool("strong", result.Strong()))
	return result, nil
}

// filterCandidates applies the per-request modality switches.
func filterCandidates(candidates []types.Chunk, opts types.SearchOptions) []types.Chunk {
	out := candidates[:0]
	for _, c := range candidates {
		switch c.DocumentType {
		case types.DocumentTypeAudio:
			if !opts.EnableAudioSearch {
				continue
			}
		case types.DocumentTypeImage:
			if !opts.EnableImageSearch {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
