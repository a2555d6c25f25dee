// Package web exposes the JSON API: query answering, document upload and
// management, and a status endpoint.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/byerlikaya/SmartRAG-sub013/agent"
	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	"github.com/byerlikaya/SmartRAG-sub013/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router       *gin.Engine
	orchestrator *agent.Orchestrator
	ingestor     *Ingestor
	documents    store.DocumentStore
	provider     llmclient.Provider
	cfg          *config.Config
	logger       *zap.Logger
}

func NewServer(
	orchestrator *agent.Orchestrator,
	ingestor *Ingestor,
	documents store.DocumentStore,
	provider llmclient.Provider,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	s := &Server{
		router:       router,
		orchestrator: orchestrator,
		ingestor:     ingestor,
		documents:    documents,
		provider:     provider,
		cfg:          cfg,
		logger:       logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.POST("/search", s.handleSearch)
	api.POST("/upload", s.handleUpload)
	api.GET("/documents", s.handleListDocuments)
	api.GET("/documents/:id", s.handleGetDocument)
	api.DELETE("/documents/:id", s.handleDeleteDocument)
	api.DELETE("/documents", s.handleClearDocuments)
	api.GET("/status", s.handleStatus)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
