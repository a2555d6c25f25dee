package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies how a document's text was produced.
type DocumentType string

const (
	DocumentTypeText   DocumentType = "Text"
	DocumentTypeAudio  DocumentType = "Audio"
	DocumentTypeImage  DocumentType = "Image"
	DocumentTypeSchema DocumentType = "Schema"
)

// MetadataSegmentsKey is the Document.Metadata key that carries the ordered
// audio segment table for transcribed documents.
const MetadataSegmentsKey = "Segments"

// Document is an uploaded file after text extraction. Immutable except for
// re-embedding; chunks never outlive their document.
type Document struct {
	ID           uuid.UUID      `json:"id"`
	FileName     string         `json:"fileName"`
	ContentType  string         `json:"contentType"`
	Content      string         `json:"content"`
	UploadedBy   string         `json:"uploadedBy,omitempty"`
	UploadedAt   time.Time      `json:"uploadedAt"`
	FileSize     int64          `json:"fileSize"`
	DocumentType DocumentType   `json:"documentType"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Chunks       []Chunk        `json:"chunks,omitempty"`
}

// AudioSegments returns the segment table stored in metadata, or nil when
// the document carries none. Stores that persist documents as JSON hand the
// value back as []any of maps, so that shape is decoded here too.
func (d *Document) AudioSegments() []AudioSegment {
	if d == nil || d.Metadata == nil {
		return nil
	}
	raw, ok := d.Metadata[MetadataSegmentsKey]
	if !ok {
		return nil
	}
	if segs, ok := raw.([]AudioSegment); ok {
		return segs
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var segs []AudioSegment
	if err := json.Unmarshal(data, &segs); err != nil || len(segs) == 0 {
		return nil
	}
	return segs
}

// Chunk is a contiguous slice of a document's extracted text.
// StartPosition and EndPosition are inclusive character offsets into
// Document.Content; ChunkIndex is dense within a document and chunk 0 is the
// document header chunk.
type Chunk struct {
	ID             uuid.UUID    `json:"id"`
	DocumentID     uuid.UUID    `json:"documentId"`
	ChunkIndex     int          `json:"chunkIndex"`
	Content        string       `json:"content"`
	StartPosition  int          `json:"startPosition"`
	EndPosition    int          `json:"endPosition"`
	Embedding      []float32    `json:"embedding,omitempty"`
	RelevanceScore float64      `json:"relevanceScore"`
	CreatedAt      time.Time    `json:"createdAt"`
	DocumentType   DocumentType `json:"documentType"`
	// FileName is carried for display; populated by the store on search.
	FileName string `json:"fileName,omitempty"`
}

// AudioSegment maps a span of transcript text back to playback time.
type AudioSegment struct {
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Text           string  `json:"text"`
	Probability    float64 `json:"probability"`
	NormalizedText string  `json:"normalizedText,omitempty"`
	StartCharIndex int     `json:"startCharIndex"`
	EndCharIndex   int     `json:"endCharIndex"`
}

// ConversationTurn is one question/answer pair within a session, with the
// sources that backed the answer.
type ConversationTurn struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Sources   []SearchSource `json:"sources,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SourceType classifies where a SearchSource came from.
type SourceType string

const (
	SourceTypeDocument SourceType = "Document"
	SourceTypeAudio    SourceType = "Audio"
	SourceTypeImage    SourceType = "Image"
	SourceTypeDatabase SourceType = "Database"
	SourceTypeSystem   SourceType = "System"
)

// SearchSource is one provenance entry attached to a response. Optional
// numeric fields are pointers so a present zero (row number 0, offset 0)
// survives serialization.
type SearchSource struct {
	SourceType       SourceType `json:"sourceType"`
	DocumentID       *uuid.UUID `json:"documentId,omitempty"`
	FileName         string     `json:"fileName,omitempty"`
	RelevantContent  string     `json:"relevantContent"`
	RelevanceScore   float64    `json:"relevanceScore"`
	Location         string     `json:"location,omitempty"`
	ChunkIndex       *int       `json:"chunkIndex,omitempty"`
	StartPosition    *int       `json:"startPosition,omitempty"`
	EndPosition      *int       `json:"endPosition,omitempty"`
	StartTimeSeconds *float64   `json:"startTimeSeconds,omitempty"`
	EndTimeSeconds   *float64   `json:"endTimeSeconds,omitempty"`
	DatabaseID       string     `json:"databaseId,omitempty"`
	DatabaseName     string     `json:"databaseName,omitempty"`
	Tables           []string   `json:"tables,omitempty"`
	ExecutedQuery    string     `json:"executedQuery,omitempty"`
	RowNumber        *int       `json:"rowNumber,omitempty"`
}

// ResponseConfiguration identifies the providers that actually served a
// response.
type ResponseConfiguration struct {
	AIProvider      string `json:"aiProvider"`
	StorageProvider string `json:"storageProvider"`
	Model           string `json:"model,omitempty"`
}

// RagResponse is the unified answer for one query.
type RagResponse struct {
	Query         string                `json:"query"`
	Answer        string                `json:"answer"`
	Sources       []SearchSource        `json:"sources"`
	SearchedAt    time.Time             `json:"searchedAt"`
	Configuration ResponseConfiguration `json:"configuration"`
}

// Strategy is the execution path chosen for a query.
type Strategy string

const (
	StrategyDocumentOnly Strategy = "DocumentOnly"
	StrategyDatabaseOnly Strategy = "DatabaseOnly"
	StrategyHybrid       Strategy = "Hybrid"
)

// SearchOptions are the per-request toggles, populated from configuration
// defaults and overridden by query tags.
type SearchOptions struct {
	EnableDocumentSearch bool   `json:"enableDocumentSearch"`
	EnableDatabaseSearch bool   `json:"enableDatabaseSearch"`
	EnableAudioSearch    bool   `json:"enableAudioSearch"`
	EnableImageSearch    bool   `json:"enableImageSearch"`
	EnableExternalTools  bool   `json:"enableExternalTools"`
	PreferredLanguage    string `json:"preferredLanguage,omitempty"`
}
