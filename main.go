package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/byerlikaya/SmartRAG-sub013/agent"
	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/database"
	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	"github.com/byerlikaya/SmartRAG-sub013/parser"
	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/store"
	"github.com/byerlikaya/SmartRAG-sub013/web"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Bootstrap logger so config loading can already log; re-initialized
	// below once the configured level is known.
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load(tempLogger)

	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	provider, err := llmclient.NewWithFallbacks(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	embedder, err := embedding.New(cfg, provider, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedder", zap.Error(err))
	}

	documents, err := store.NewDocumentStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document store", zap.Error(err))
	}
	conversations, err := store.NewConversationStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize conversation store", zap.Error(err))
	}

	coordinator, err := database.NewCoordinator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database coordinator", zap.Error(err))
	}
	defer coordinator.Close()

	searcher := rag.NewSearcher(documents, embedder, cfg, logger)
	detector := rag.NewMissingAnswerDetector(embedder, logger)
	generator := database.NewSQLGenerator(provider, coordinator.Schemas(), logger)

	orchestrator := agent.NewOrchestrator(cfg, provider, searcher, coordinator, generator, detector, conversations, logger)

	ingestor := web.NewIngestor(parser.NewRegistry(), embedder, documents, cfg, logger)
	server := web.NewServer(orchestrator, ingestor, documents, provider, cfg, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	coordinator.StartPeriodicRefresh(ctx)

	logger.Info("Starting SmartRAG", zap.String("address", cfg.ListenAddress))
	if err := server.Start(ctx, cfg.ListenAddress); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
