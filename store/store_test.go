package store

import (
	"context"
	"errors"
	"testing"
	"time"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testDocument(fileName, content string) *types.Document {
	doc := &types.Document{
		ID:           uuid.New(),
		FileName:     fileName,
		Content:      content,
		DocumentType: types.DocumentTypeText,
		UploadedAt:   time.Now().UTC(),
	}
	doc.Chunks = []types.Chunk{{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		ChunkIndex:    0,
		Content:       content,
		StartPosition: 0,
		EndPosition:   len([]rune(content)) - 1,
		DocumentType:  types.DocumentTypeText,
		FileName:      fileName,
	}}
	return doc
}

func TestContentHash(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"identical", "hello world", "hello world", true},
		{"trimmed_equals_untrimmed", "  hello world \n", "hello world", true},
		{"different", "hello world", "goodbye world", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentHash(tt.a) == ContentHash(tt.b); got != tt.same {
				t.Errorf("ContentHash equality = %v, want %v", got, tt.same)
			}
		})
	}
	if ContentHash("   ") != "" {
		t.Error("blank content should hash to empty string")
	}
}

func TestInMemoryStoreDuplicateUpload(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s, err := NewInMemoryStore(logger)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := s.Add(ctx, testDocument("report.txt", "quarterly revenue grew"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Add(ctx, testDocument("report-copy.txt", "quarterly revenue grew"))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate upload returned new document %s, want original %s", second.ID, first.ID)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d after duplicate upload, want 1", n)
	}
}

func TestInMemoryStoreDeleteAndClear(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s, err := NewInMemoryStore(logger)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	doc, err := s.Add(ctx, testDocument("a.txt", "alpha content"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, testDocument("b.txt", "beta content")); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, doc.ID); !errors.Is(err, smarterrors.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, doc.ID); !errors.Is(err, smarterrors.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}

	// Re-uploading deleted content must succeed, not hit a stale hash.
	if _, err := s.Add(ctx, testDocument("a.txt", "alpha content")); err != nil {
		t.Fatalf("re-add after delete: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Count after ClearAll = %d, want 0", n)
	}
}

func TestInMemoryStoreKeywordSearch(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s, err := NewInMemoryStore(logger)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.Add(ctx, testDocument("birds.txt", "the migration of arctic terns")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, testDocument("fish.txt", "salmon swim upstream to spawn")); err != nil {
		t.Fatal(err)
	}

	chunks, err := s.Search(ctx, "arctic terns migration", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("keyword search returned no chunks")
	}
	if chunks[0].FileName != "birds.txt" {
		t.Errorf("top chunk from %q, want birds.txt", chunks[0].FileName)
	}
	for _, c := range chunks {
		if c.RelevanceScore < 0 || c.RelevanceScore > 1 {
			t.Errorf("score %f out of [0,1]", c.RelevanceScore)
		}
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name    string
		words   []string
		content string
		want    float64
	}{
		{"all_present", []string{"alpha", "beta"}, "Alpha and Beta", 1},
		{"half_present", []string{"alpha", "gamma"}, "alpha only", 0.5},
		{"none_present", []string{"delta"}, "something else", 0},
		{"no_words", nil, "anything", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordScore(tt.words, tt.content); got != tt.want {
				t.Errorf("keywordScore = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestInMemoryConversationStore(t *testing.T) {
	s := NewInMemoryConversationStore()
	ctx := context.Background()

	exists, err := s.SessionExists(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("SessionExists true for unknown session")
	}

	if err := s.Append(ctx, "s1", "q1", "a1", []types.SearchSource{{SourceType: types.SourceTypeDocument}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "s1", "q2", "a2", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "", "q", "a", nil); !errors.Is(err, smarterrors.ErrInvalidInput) {
		t.Errorf("empty session append = %v, want ErrInvalidInput", err)
	}

	turns, err := s.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 || turns[0].Question != "q1" || turns[1].Question != "q2" {
		t.Errorf("history out of order: %+v", turns)
	}

	sources, err := s.GetSourcesForSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 {
		t.Errorf("got %d sources, want 1", len(sources))
	}

	first, last, err := s.GetSessionTimestamps(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if last.Before(first) {
		t.Errorf("last %v before first %v", last, first)
	}
	if _, _, err := s.GetSessionTimestamps(ctx, "missing"); !errors.Is(err, smarterrors.ErrNotFound) {
		t.Errorf("timestamps for unknown session = %v, want ErrNotFound", err)
	}
}

func TestFileSystemConversationStore(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s, err := NewFileSystemConversationStore(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Append(ctx, "session-1", "q1", "a1", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "session-1", "q2", "a2", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "../evil", "q", "a", nil); !errors.Is(err, smarterrors.ErrInvalidInput) {
		t.Errorf("path-escaping session id = %v, want ErrInvalidInput", err)
	}

	turns, err := s.GetHistory(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 || turns[1].Answer != "a2" {
		t.Errorf("unexpected history: %+v", turns)
	}

	ids, err := s.GetAllSessionIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "session-1" {
		t.Errorf("session ids = %v, want [session-1]", ids)
	}
}
