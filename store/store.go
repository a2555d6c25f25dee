// Package store provides the document and conversation repositories behind
// the orchestrator. Four document backends (in-memory, Redis, Qdrant,
// Postgres/pgvector) and four conversation backends (in-memory, Redis,
// SQLite, filesystem) share two narrow contracts.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
)

// DocumentStore persists documents, chunks, and embeddings. All
// implementations are safe for concurrent callers. Add is idempotent on
// content hash: re-uploading identical content returns the original
// document without re-embedding.
type DocumentStore interface {
	Add(ctx context.Context, doc *types.Document) (*types.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Document, error)
	GetAll(ctx context.Context) ([]*types.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	// Search returns chunks ranked by the backend's native relevance:
	// vector similarity when queryEmbedding is non-nil and vectors exist,
	// keyword rank otherwise. Scores are normalized to [0, 1].
	Search(ctx context.Context, query string, queryEmbedding []float32, maxResults int) ([]types.Chunk, error)
	ClearAll(ctx context.Context) error
	Name() string
}

// ConversationStore keeps the append-only per-session turn log.
type ConversationStore interface {
	GetHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error)
	Append(ctx context.Context, sessionID, question, answer string, sources []types.SearchSource) error
	GetSourcesForSession(ctx context.Context, sessionID string) ([]types.SearchSource, error)
	GetAllSessionIDs(ctx context.Context) ([]string, error)
	GetSessionTimestamps(ctx context.Context, sessionID string) (first, last time.Time, err error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	Name() string
}

// ContentHash is the duplicate-upload registry key: SHA-256 over the
// whitespace-trimmed content.
func ContentHash(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// keywordScore is the shared keyword fallback rank: the fraction of unique
// query words present in the content, in [0, 1].
func keywordScore(queryWords []string, content string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, w := range queryWords {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryWords))
}

// clamp01 bounds a backend score into the response contract's range.
func clamp01(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
