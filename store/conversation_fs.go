package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

var sessionFilePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileSystemConversationStore writes each session to <dir>/<sessionID>.json.
// Session IDs are restricted to a safe character set so they cannot escape
// the conversation directory.
type FileSystemConversationStore struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
}

func NewFileSystemConversationStore(dir string, logger *zap.Logger) (*FileSystemConversationStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return &FileSystemConversationStore{dir: dir, logger: logger}, nil
}

func (s *FileSystemConversationStore) Name() string { return "FileSystem" }

func (s *FileSystemConversationStore) path(sessionID string) (string, error) {
	if !sessionFilePattern.MatchString(sessionID) {
		return "", smarterrors.Wrapf(smarterrors.ErrInvalidInput, "invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, sessionID+".json"), nil
}

func (s *FileSystemConversationStore) load(sessionID string) ([]types.ConversationTurn, error) {
	p, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	var turns []types.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, smarterrors.Wrap(err, "unmarshal session file")
	}
	return turns, nil
}

func (s *FileSystemConversationStore) GetHistory(_ context.Context, sessionID string) ([]types.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID)
}

func (s *FileSystemConversationStore) Append(_ context.Context, sessionID, question, answer string, sources []types.SearchSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.load(sessionID)
	if err != nil {
		return err
	}
	turns = append(turns, types.ConversationTurn{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		Timestamp: time.Now().UTC(),
	})
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return smarterrors.Wrap(err, "marshal session file")
	}
	p, err := s.path(sessionID)
	if err != nil {
		return err
	}
	// Write-then-rename keeps the session file whole if the process dies.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if err := os.Rename(tmp, p); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *FileSystemConversationStore) GetSourcesForSession(ctx context.Context, sessionID string) ([]types.SearchSource, error) {
	turns, err := s.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return collectSources(turns), nil
}

func (s *FileSystemConversationStore) GetAllSessionIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, entry.Name()[:len(entry.Name())-len(".json")])
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileSystemConversationStore) GetSessionTimestamps(ctx context.Context, sessionID string) (time.Time, time.Time, error) {
	turns, err := s.GetHistory(ctx, sessionID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(turns) == 0 {
		return time.Time{}, time.Time{}, smarterrors.Wrapf(smarterrors.ErrNotFound, "session %s", sessionID)
	}
	return turns[0].Timestamp, turns[len(turns)-1].Timestamp, nil
}

func (s *FileSystemConversationStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.path(sessionID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return true, nil
}
