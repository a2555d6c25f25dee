package store

import (
	"context"
	"sort"
	"sync"
	"time"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// InMemoryConversationStore keeps session logs in process memory. Sessions
// vanish on restart, which is acceptable for the default deployment.
type InMemoryConversationStore struct {
	mu       sync.RWMutex
	sessions map[string][]types.ConversationTurn
}

func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{sessions: make(map[string][]types.ConversationTurn)}
}

func (s *InMemoryConversationStore) Name() string { return "InMemory" }

func (s *InMemoryConversationStore) GetHistory(_ context.Context, sessionID string) ([]types.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	out := make([]types.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *InMemoryConversationStore) Append(_ context.Context, sessionID, question, answer string, sources []types.SearchSource) error {
	if sessionID == "" {
		return smarterrors.Wrap(smarterrors.ErrInvalidInput, "empty session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], types.ConversationTurn{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryConversationStore) GetSourcesForSession(ctx context.Context, sessionID string) ([]types.SearchSource, error) {
	turns, err := s.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return collectSources(turns), nil
}

func (s *InMemoryConversationStore) GetAllSessionIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryConversationStore) GetSessionTimestamps(_ context.Context, sessionID string) (time.Time, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if len(turns) == 0 {
		return time.Time{}, time.Time{}, smarterrors.Wrapf(smarterrors.ErrNotFound, "session %s", sessionID)
	}
	return turns[0].Timestamp, turns[len(turns)-1].Timestamp, nil
}

func (s *InMemoryConversationStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

// collectSources flattens per-turn sources in chronological order.
func collectSources(turns []types.ConversationTurn) []types.SearchSource {
	var sources []types.SearchSource
	for _, turn := range turns {
		sources = append(sources, turn.Sources...)
	}
	return sources
}
