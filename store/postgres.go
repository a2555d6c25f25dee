package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// PostgresStore persists documents and chunks in PostgreSQL with pgvector
// embeddings. Vector search runs server side via the <=> cosine operator;
// keyword fallback uses full text search.
type PostgresStore struct {
	db        *sql.DB
	dimension int
	logger    *zap.Logger
}

func NewPostgresStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.PostgresConnString)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}

	s := &PostgresStore{db: db, dimension: cfg.EmbeddingDimension, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Name() string { return "Postgres" }

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			file_name TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			uploaded_by TEXT NOT NULL DEFAULT '',
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			file_size BIGINT NOT NULL DEFAULT 0,
			document_type TEXT NOT NULL DEFAULT 'Text',
			metadata JSONB
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS documents_content_hash_idx ON documents (content_hash)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			start_position INT NOT NULL,
			end_position INT NOT NULL,
			document_type TEXT NOT NULL DEFAULT 'Text',
			embedding vector(%d)
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS chunks_document_id_idx ON chunks (document_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_content_fts_idx ON chunks USING GIN (to_tsvector('simple', content))`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, doc *types.Document) (*types.Document, error) {
	hash := ContentHash(doc.Content)

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE content_hash = $1`, hash).Scan(&existingID)
	if err == nil {
		s.logger.Debug("Duplicate upload, returning original document",
			zap.String("document_id", existingID.String()))
		return s.GetByID(ctx, existingID)
	}
	if err != sql.ErrNoRows {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	var metaJSON []byte
	if doc.Metadata != nil {
		metaJSON, err = json.Marshal(doc.Metadata)
		if err != nil {
			return nil, smarterrors.Wrap(err, "marshal metadata")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, file_name, content_type, content, content_hash,
			uploaded_by, uploaded_at, file_size, document_type, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.FileName, doc.ContentType, doc.Content, hash,
		doc.UploadedBy, doc.UploadedAt, doc.FileSize, string(doc.DocumentType), metaJSON)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}

	for i := range doc.Chunks {
		chunk := &doc.Chunks[i]
		chunk.DocumentID = doc.ID

		var embedding any
		if len(chunk.Embedding) > 0 {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, chunk_index, content,
				start_position, end_position, document_type, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			chunk.ID, doc.ID, chunk.ChunkIndex, chunk.Content,
			chunk.StartPosition, chunk.EndPosition, string(chunk.DocumentType), embedding)
		if err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return doc, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	doc, err := s.scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, file_name, content_type, content, uploaded_by, uploaded_at,
			file_size, document_type, metadata
		 FROM documents WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadChunks(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) scanDocument(row *sql.Row) (*types.Document, error) {
	var doc types.Document
	var docType string
	var metaJSON []byte
	err := row.Scan(&doc.ID, &doc.FileName, &doc.ContentType, &doc.Content,
		&doc.UploadedBy, &doc.UploadedAt, &doc.FileSize, &docType, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, smarterrors.Wrap(smarterrors.ErrNotFound, "document")
	}
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	doc.DocumentType = types.DocumentType(docType)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &doc.Metadata); err != nil {
			return nil, smarterrors.Wrap(err, "unmarshal metadata")
		}
	}
	return &doc, nil
}

func (s *PostgresStore) loadChunks(ctx context.Context, doc *types.Document) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chunk_index, content, start_position, end_position, document_type
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, doc.ID)
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		var chunk types.Chunk
		var chunkType string
		if err := rows.Scan(&chunk.ID, &chunk.ChunkIndex, &chunk.Content,
			&chunk.StartPosition, &chunk.EndPosition, &chunkType); err != nil {
			return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		chunk.DocumentID = doc.ID
		chunk.DocumentType = types.DocumentType(chunkType)
		chunk.FileName = doc.FileName
		doc.Chunks = append(doc.Chunks, chunk)
	}
	return rows.Err()
}

func (s *PostgresStore) GetAll(ctx context.Context) ([]*types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents ORDER BY uploaded_at`)
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}

	docs := make([]*types.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return smarterrors.Wrapf(smarterrors.ErrNotFound, "document %s", id)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return n, nil
}

func (s *PostgresStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE documents CASCADE`); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, queryEmbedding []float32, maxResults int) ([]types.Chunk, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if len(queryEmbedding) > 0 {
		rows, err = s.db.QueryContext(ctx,
			`SELECT c.id, c.document_id, c.chunk_index, c.content,
				c.start_position, c.end_position, c.document_type, d.file_name,
				1 - (c.embedding <=> $1) AS score
			 FROM chunks c JOIN documents d ON d.id = c.document_id
			 WHERE c.embedding IS NOT NULL
			 ORDER BY c.embedding <=> $1
			 LIMIT $2`,
			pgvector.NewVector(queryEmbedding), maxResults)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT c.id, c.document_id, c.chunk_index, c.content,
				c.start_position, c.end_position, c.document_type, d.file_name,
				ts_rank(to_tsvector('simple', c.content), plainto_tsquery('simple', $1)) AS score
			 FROM chunks c JOIN documents d ON d.id = c.document_id
			 WHERE to_tsvector('simple', c.content) @@ plainto_tsquery('simple', $1)
			 ORDER BY score DESC
			 LIMIT $2`,
			query, maxResults)
	}
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		var chunkType string
		var score float64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex,
			&chunk.Content, &chunk.StartPosition, &chunk.EndPosition,
			&chunkType, &chunk.FileName, &score); err != nil {
			return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
		}
		chunk.DocumentType = types.DocumentType(chunkType)
		chunk.RelevanceScore = clamp01(score)
		if chunk.RelevanceScore <= 0 {
			continue
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].RelevanceScore == chunks[j].RelevanceScore {
			return chunks[i].ID.String() < chunks[j].ID.String()
		}
		return chunks[i].RelevanceScore > chunks[j].RelevanceScore
	})
	return chunks, nil
}
