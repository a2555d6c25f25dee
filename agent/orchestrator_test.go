package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/store"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

type stubProvider struct {
	answer string
}

func (p *stubProvider) Name() string  { return "Stub" }
func (p *stubProvider) Model() string { return "stub-model" }

func (p *stubProvider) GenerateText(_ context.Context, _ string) (string, error) {
	return p.answer, nil
}

func (p *stubProvider) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		StorageProvider:      config.StorageInMemory,
		MaxSearchResults:     20,
		ContextMaxBytes:      16000,
		TopChunksPerDoc:      5,
		MaxConversationTurns: 10,
		EmbeddingCacheSize:   64,
		EmbeddingBatchSize:   16,
		Features: config.Features{
			EnableDocumentSearch: true,
			EnableDatabaseSearch: true,
			EnableAudioParsing:   true,
			EnableImageParsing:   true,
		},
	}
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	cfg := testConfig()
	provider := &stubProvider{answer: "stub answer"}

	embedder, err := embedding.New(cfg, provider, logger)
	if err != nil {
		t.Fatal(err)
	}
	docs, err := store.NewInMemoryStore(logger)
	if err != nil {
		t.Fatal(err)
	}
	searcher := rag.NewSearcher(docs, embedder, cfg, logger)
	detector := rag.NewMissingAnswerDetector(embedder, logger)
	conversations := store.NewInMemoryConversationStore()

	return NewOrchestrator(cfg, provider, searcher, nil, nil, detector, conversations, logger)
}

func TestAnswerForcedDatabaseWithoutDatabasesUsesDocuments(t *testing.T) {
	o := newTestOrchestrator(t)

	resp, err := o.Answer(context.Background(), "s1", "-db top 3 customers by total")
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if resp.Query != "top 3 customers by total" {
		t.Errorf("Query = %q, want tag stripped", resp.Query)
	}
	// No documents are stored, so the document path reports missing data
	// rather than the no-backends response.
	if resp.Answer != rag.MissingDataMarker {
		t.Errorf("Answer = %q, want %q", resp.Answer, rag.MissingDataMarker)
	}

	var system []types.SearchSource
	for _, s := range resp.Sources {
		if s.SourceType == types.SourceTypeSystem {
			system = append(system, s)
		}
	}
	if len(system) != 1 {
		t.Fatalf("system sources = %d, want 1: %+v", len(system), resp.Sources)
	}
	if !strings.Contains(system[0].RelevantContent, "no database connection is configured") {
		t.Errorf("system source = %q", system[0].RelevantContent)
	}
	if strings.Contains(system[0].RelevantContent, "No retrieval backends") {
		t.Errorf("got the unconfigured response instead of the document path: %q", system[0].RelevantContent)
	}
}

func TestAnswerNoBackendsAtAll(t *testing.T) {
	o := newTestOrchestrator(t)
	o.cfg.Features.EnableDocumentSearch = false

	resp, err := o.Answer(context.Background(), "s1", "-d what is in the report")
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if resp.Answer != "" {
		t.Errorf("Answer = %q, want empty", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].SourceType != types.SourceTypeSystem {
		t.Errorf("sources = %+v, want a single System entry", resp.Sources)
	}
}

func TestSessionLockerDrains(t *testing.T) {
	l := newSessionLocker()

	a := l.acquire("s1")
	b := l.acquire("s1")
	if a != b {
		t.Error("concurrent holders of one session must share a lock")
	}
	if l.size() != 1 {
		t.Errorf("size = %d, want 1", l.size())
	}

	l.release("s1", a)
	if l.size() != 1 {
		t.Errorf("size after first release = %d, want 1", l.size())
	}
	l.release("s1", b)
	if l.size() != 0 {
		t.Errorf("size after last release = %d, want 0", l.size())
	}

	// A fresh acquire after drain must work and drain again.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sl := l.acquire("s2")
			sl.mu.Lock()
			sl.mu.Unlock()
			l.release("s2", sl)
		}()
	}
	wg.Wait()
	if l.size() != 0 {
		t.Errorf("size after concurrent churn = %d, want 0", l.size())
	}
}
