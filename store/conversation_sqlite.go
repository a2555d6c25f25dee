package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteConversationStore persists sessions in a local SQLite file, one row
// per turn with sources serialized as JSON.
type SQLiteConversationStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteConversationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*SQLiteConversationStore, error) {
	db, err := sql.Open("sqlite3", cfg.SQLitePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	// SQLite serializes writers; a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS conversation_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		sources TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS conversation_turns_session_idx ON conversation_turns (session_id, id)`)
	if err != nil {
		db.Close()
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return &SQLiteConversationStore{db: db, logger: logger}, nil
}

func (s *SQLiteConversationStore) Name() string { return "SQLite" }

func (s *SQLiteConversationStore) Close() error { return s.db.Close() }

func (s *SQLiteConversationStore) GetHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, answer, sources, created_at
		 FROM conversation_turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	defer rows.Close()

	var turns []types.ConversationTurn
	for rows.Next() {
		var turn types.ConversationTurn
		var sourcesJSON sql.NullString
		if err := rows.Scan(&turn.Question, &turn.Answer, &sourcesJSON, &turn.Timestamp); err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		if sourcesJSON.Valid && sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &turn.Sources); err != nil {
				return nil, smarterrors.Wrap(err, "unmarshal turn sources")
			}
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *SQLiteConversationStore) Append(ctx context.Context, sessionID, question, answer string, sources []types.SearchSource) error {
	if sessionID == "" {
		return smarterrors.Wrap(smarterrors.ErrInvalidInput, "empty session id")
	}
	var sourcesJSON []byte
	if len(sources) > 0 {
		var err error
		sourcesJSON, err = json.Marshal(sources)
		if err != nil {
			return smarterrors.Wrap(err, "marshal turn sources")
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_turns (session_id, question, answer, sources, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, question, answer, string(sourcesJSON), time.Now().UTC())
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *SQLiteConversationStore) GetSourcesForSession(ctx context.Context, sessionID string) ([]types.SearchSource, error) {
	turns, err := s.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return collectSources(turns), nil
}

func (s *SQLiteConversationStore) GetAllSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT session_id FROM conversation_turns ORDER BY session_id`)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteConversationStore) GetSessionTimestamps(ctx context.Context, sessionID string) (time.Time, time.Time, error) {
	var first, last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(created_at), MAX(created_at) FROM conversation_turns WHERE session_id = ?`,
		sessionID).Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if !first.Valid {
		return time.Time{}, time.Time{}, smarterrors.Wrapf(smarterrors.ErrNotFound, "session %s", sessionID)
	}
	return first.Time, last.Time, nil
}

func (s *SQLiteConversationStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversation_turns WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return false, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return n > 0, nil
}
