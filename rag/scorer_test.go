package rag

import (
	"math"
	"testing"

	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
)

func chunkWith(docID uuid.UUID, index int, content string, embedding []float32) types.Chunk {
	return types.Chunk{
		ID:           uuid.New(),
		DocumentID:   docID,
		ChunkIndex:   index,
		Content:      content,
		Embedding:    embedding,
		DocumentType: types.DocumentTypeText,
	}
}

func TestScoreChunksHybridEquation(t *testing.T) {
	sc := NewScorer(5)
	docID := uuid.New()
	queryVec := []float32{1, 0, 0}

	// Identical embedding: s = 1. Content shares no words: k = 0.
	chunks := []types.Chunk{chunkWith(docID, 1, "zzz yyy xxx", []float32{1, 0, 0})}
	scored := sc.ScoreChunks("completely different words", queryVec, chunks)
	if len(scored) != 1 {
		t.Fatalf("got %d chunks, want 1", len(scored))
	}
	if math.Abs(scored[0].RelevanceScore-0.8) > 1e-9 {
		t.Errorf("score = %f, want 0.8 (pure semantic)", scored[0].RelevanceScore)
	}
}

func TestScoreChunksKeywordOnlyFallback(t *testing.T) {
	sc := NewScorer(5)
	docID := uuid.New()

	// No embeddings anywhere: only the keyword term can contribute.
	chunks := []types.Chunk{
		chunkWith(docID, 1, "the migration of arctic terns spans hemispheres", nil),
		chunkWith(docID, 2, "unrelated text about cooking pasta", nil),
	}
	scored := sc.ScoreChunks("arctic terns migration", nil, chunks)
	if len(scored) != 1 {
		t.Fatalf("got %d chunks, want only the matching one", len(scored))
	}
	if scored[0].ChunkIndex != 1 {
		t.Errorf("surviving chunk index = %d, want 1", scored[0].ChunkIndex)
	}
	if scored[0].RelevanceScore <= 0 || scored[0].RelevanceScore > 0.2 {
		t.Errorf("keyword-only score = %f, want in (0, 0.2]", scored[0].RelevanceScore)
	}
}

func TestScoreChunksBelowFloorDropped(t *testing.T) {
	sc := NewScorer(5)
	docID := uuid.New()
	chunks := []types.Chunk{chunkWith(docID, 1, "nothing in common here", nil)}
	if got := sc.ScoreChunks("quarterly revenue", nil, chunks); len(got) != 0 {
		t.Errorf("expected chunk below %v to be dropped, got %d", minChunkScore, len(got))
	}
}

func TestScoreChunksEmptyInput(t *testing.T) {
	sc := NewScorer(5)
	if got := sc.ScoreChunks("anything", nil, nil); got != nil {
		t.Errorf("empty candidates should produce nil, got %v", got)
	}
}

func TestChunkZeroFilenameBoost(t *testing.T) {
	sc := NewScorer(5)
	docID := uuid.New()
	queryVec := []float32{1, 0}

	base := chunkWith(docID, 1, "Annual Report contents overview", []float32{1, 0})
	boosted := chunkWith(docID, 0, "Annual Report contents overview", []float32{1, 0})
	base.FileName = "annual-report.pdf"
	boosted.FileName = "annual-report.pdf"

	scored := sc.ScoreChunks("summarize the Annual Report please", queryVec,
		[]types.Chunk{base, boosted})
	if len(scored) != 2 {
		t.Fatalf("got %d chunks, want 2", len(scored))
	}
	var s0, s1 float64
	for _, c := range scored {
		if c.ChunkIndex == 0 {
			s0 = c.RelevanceScore
		} else {
			s1 = c.RelevanceScore
		}
	}
	if s0 <= s1 && s0 < 1.0 {
		t.Errorf("chunk 0 score %f not boosted over chunk 1 score %f", s0, s1)
	}
	if s0 > 1.0 || s1 > 1.0 {
		t.Errorf("scores exceed 1.0: %f, %f", s0, s1)
	}
}

func TestAggregateDocumentsOrderingAndFiltering(t *testing.T) {
	sc := NewScorer(5)
	strongDoc := uuid.New()
	weakDoc := uuid.New()

	var scored []types.Chunk
	for i := 0; i < 5; i++ {
		c := chunkWith(strongDoc, i, "alpha beta gamma delta", nil)
		c.RelevanceScore = 0.9
		scored = append(scored, c)
	}
	weak := chunkWith(weakDoc, 0, "alpha", nil)
	weak.RelevanceScore = 0.2
	scored = append(scored, weak)

	docs := sc.AggregateDocuments("alpha beta gamma delta", scored)
	if len(docs) != 1 {
		t.Fatalf("got %d relevant documents, want 1 (weak below 0.8x cutoff)", len(docs))
	}
	if docs[0].DocumentID != strongDoc {
		t.Errorf("top document = %s, want %s", docs[0].DocumentID, strongDoc)
	}
	// 5 chunks at 0.9 plus unique-word bonuses for words absent from the
	// weak document.
	if docs[0].Aggregate < StrongDocumentMatchThreshold {
		t.Errorf("aggregate %f should clear the strong threshold", docs[0].Aggregate)
	}
	if !docs[0].Strong() {
		t.Error("document should be strong")
	}
}

func TestAggregateDocumentsTieBreaks(t *testing.T) {
	sc := NewScorer(5)
	docA := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	docB := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")

	// Same aggregate, same word coverage; B has more chunks so A wins on
	// the concise-match tie-break.
	a := chunkWith(docA, 0, "shared words here", nil)
	a.RelevanceScore = 0.6
	b1 := chunkWith(docB, 0, "shared words here", nil)
	b1.RelevanceScore = 0.3
	b2 := chunkWith(docB, 1, "shared words here", nil)
	b2.RelevanceScore = 0.3

	docs := sc.AggregateDocuments("shared words", []types.Chunk{b1, b2, a})
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].DocumentID != docA {
		t.Errorf("tie-break winner = %s, want fewer-chunk document %s", docs[0].DocumentID, docA)
	}
}
