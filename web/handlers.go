package web

import (
	"errors"
	"net/http"
	"time"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusCodeClientClosed reports a request abandoned by the caller; gin has
// no constant for it.
const statusCodeClientClosed = 499

type searchRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with a non-empty query field"})
		return
	}

	response, err := s.orchestrator.Answer(c.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		s.respondError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, response)
}

type uploadFileResult struct {
	FileName   string `json:"fileName"`
	DocumentID string `json:"documentId,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleUpload ingests a multipart batch. One bad file never sinks the
// batch; its slot carries the error instead.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must be multipart form data"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in the 'files' field"})
		return
	}
	language := c.PostForm("language")

	results := make([]uploadFileResult, 0, len(files))
	for _, header := range files {
		result := uploadFileResult{FileName: header.Filename}

		f, err := header.Open()
		if err != nil {
			result.Error = "could not read uploaded file"
			results = append(results, result)
			continue
		}
		doc, err := s.ingestor.IngestFile(c.Request.Context(), f, header.Filename,
			header.Header.Get("Content-Type"), language, header.Size)
		f.Close()
		if err != nil {
			if smarterrors.IsCancelled(err) {
				c.JSON(statusCodeClientClosed, gin.H{"error": "request cancelled"})
				return
			}
			s.logger.Warn("File ingestion failed",
				zap.String("file_name", header.Filename), zap.Error(err))
			result.Error = publicMessage(err, "ingestion failed")
			results = append(results, result)
			continue
		}
		result.DocumentID = doc.ID.String()
		result.Chunks = len(doc.Chunks)
		results = append(results, result)
	}
	c.JSON(http.StatusOK, gin.H{"files": results})
}

// documentSummary is the list form of a document: everything except the
// extracted text and the chunk bodies.
type documentSummary struct {
	ID           uuid.UUID          `json:"id"`
	FileName     string             `json:"fileName"`
	ContentType  string             `json:"contentType,omitempty"`
	UploadedAt   time.Time          `json:"uploadedAt"`
	FileSize     int64              `json:"fileSize"`
	DocumentType types.DocumentType `json:"documentType"`
	ChunkCount   int                `json:"chunkCount"`
}

func summarize(doc *types.Document) documentSummary {
	return documentSummary{
		ID:           doc.ID,
		FileName:     doc.FileName,
		ContentType:  doc.ContentType,
		UploadedAt:   doc.UploadedAt,
		FileSize:     doc.FileSize,
		DocumentType: doc.DocumentType,
		ChunkCount:   len(doc.Chunks),
	}
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.documents.GetAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "could not list documents")
		return
	}
	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, summarize(doc))
	}
	c.JSON(http.StatusOK, gin.H{"documents": summaries, "count": len(summaries)})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document id must be a UUID"})
		return
	}
	doc, err := s.documents.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err, "could not fetch document")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document id must be a UUID"})
		return
	}
	if err := s.documents.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err, "could not delete document")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearDocuments(c *gin.Context) {
	if err := s.documents.ClearAll(c.Request.Context()); err != nil {
		s.respondError(c, err, "could not clear documents")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStatus(c *gin.Context) {
	count, err := s.documents.Count(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "store unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"aiProvider":      s.provider.Name(),
		"model":           s.provider.Model(),
		"storageProvider": s.documents.Name(),
		"documentCount":   count,
		"databaseSearch":  s.cfg.Features.EnableDatabaseSearch,
		"documentSearch":  s.cfg.Features.EnableDocumentSearch,
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case smarterrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case smarterrors.IsNotFound(err):
		return http.StatusNotFound
	case smarterrors.IsCancelled(err):
		return statusCodeClientClosed
	case smarterrors.IsStoreUnavailable(err), smarterrors.IsProviderUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps sentinel-tagged messages, which are written for users,
// and hides everything else. Driver errors can carry connection strings.
func publicMessage(err error, fallback string) string {
	switch {
	case smarterrors.IsInvalidInput(err),
		smarterrors.IsNotFound(err),
		errors.Is(err, smarterrors.ErrParserFailed):
		return err.Error()
	case smarterrors.IsStoreUnavailable(err):
		return "storage backend unavailable"
	case smarterrors.IsProviderUnavailable(err):
		return "AI provider unavailable"
	default:
		return fallback
	}
}

// respondError logs the technical error and answers with a safe message.
func (s *Server) respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": publicMessage(err, fallback)})
}
