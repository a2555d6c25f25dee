package web

import (
	"context"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/chunker"
	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/parser"
	"github.com/byerlikaya/SmartRAG-sub013/store"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadBytes caps one uploaded file. Text extraction happens in memory,
// so the cap bounds the working set per request.
const maxUploadBytes = 50 * 1024 * 1024

// Ingestor turns an uploaded file into a stored, chunked, embedded document.
type Ingestor struct {
	parsers  *parser.Registry
	embedder *embedding.Embedder
	store    store.DocumentStore
	cfg      *config.Config
	logger   *zap.Logger
}

func NewIngestor(parsers *parser.Registry, embedder *embedding.Embedder, docs store.DocumentStore, cfg *config.Config, logger *zap.Logger) *Ingestor {
	return &Ingestor{parsers: parsers, embedder: embedder, store: docs, cfg: cfg, logger: logger}
}

// sanitizeFileName strips path fragments and unsafe characters from a
// client-supplied name. File names end up in responses and store payloads.
func sanitizeFileName(fileName string) string {
	sanitized := strings.Trim(fileName, " .")
	sanitized = strings.ReplaceAll(sanitized, "..", "")
	sanitized = unsafeFileNameChars.ReplaceAllString(sanitized, "")
	if len(sanitized) > 255 {
		sanitized = sanitized[:255]
	}
	return sanitized
}

var unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9._\s-]`)

// IngestFile runs the full pipeline for one upload: parse, chunk, embed,
// persist. Duplicate content returns the previously stored document.
func (in *Ingestor) IngestFile(ctx context.Context, r io.Reader, fileName, contentType, language string, size int64) (*types.Document, error) {
	fileName = sanitizeFileName(fileName)
	if fileName == "" {
		return nil, smarterrors.Wrap(smarterrors.ErrInvalidInput, "unusable file name")
	}
	if size > maxUploadBytes {
		return nil, smarterrors.Wrapf(smarterrors.ErrInvalidInput, "file %q exceeds the %d MB upload limit", fileName, maxUploadBytes/(1024*1024))
	}

	result, err := in.parsers.Parse(ctx, io.LimitReader(r, maxUploadBytes), fileName, contentType, language)
	if err != nil {
		return nil, err
	}
	if result.Text == "" {
		return nil, smarterrors.Wrapf(smarterrors.ErrParserFailed, "no text extracted from %q", fileName)
	}

	doc := &types.Document{
		ID:           uuid.New(),
		FileName:     fileName,
		ContentType:  contentType,
		Content:      result.Text,
		UploadedAt:   time.Now().UTC(),
		FileSize:     size,
		DocumentType: result.DocumentType,
	}
	if len(result.Segments) > 0 {
		doc.Metadata = map[string]any{types.MetadataSegmentsKey: result.Segments}
	}
	doc.Chunks = chunker.ChunkDocument(doc.ID, doc.DocumentType, doc.Content,
		in.cfg.MinChunkSize, in.cfg.MaxChunkSize, in.cfg.ChunkOverlap)

	texts := make([]string, len(doc.Chunks))
	for i := range doc.Chunks {
		texts[i] = doc.Chunks[i].Content
	}
	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range doc.Chunks {
		doc.Chunks[i].Embedding = vectors[i]
	}

	stored, err := in.store.Add(ctx, doc)
	if err != nil {
		return nil, err
	}
	if stored.ID != doc.ID {
		in.logger.Info("Duplicate upload, keeping original document",
			zap.String("file_name", fileName),
			zap.String("document_id", stored.ID.String()))
	} else {
		in.logger.Info("Document ingested",
			zap.String("file_name", fileName),
			zap.String("document_id", stored.ID.String()),
			zap.Int("chunks", len(doc.Chunks)))
	}
	return stored, nil
}
