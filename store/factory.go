package store

import (
	"context"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"go.uber.org/zap"
)

// NewDocumentStore builds the document backend named by STORAGE_PROVIDER.
func NewDocumentStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (DocumentStore, error) {
	switch cfg.StorageProvider {
	case config.StorageInMemory, "":
		return NewInMemoryStore(logger)
	case config.StorageRedis:
		return NewRedisStore(cfg, logger), nil
	case config.StorageQdrant:
		return NewQdrantStore(ctx, cfg, logger)
	case config.StoragePostgres:
		return NewPostgresStore(ctx, cfg, logger)
	default:
		return nil, smarterrors.Wrapf(smarterrors.ErrInvalidConfiguration,
			"unknown storage provider %q", cfg.StorageProvider)
	}
}

// NewConversationStore builds the conversation backend named by
// CONVERSATION_STORAGE_PROVIDER. Config normalization has already mapped
// Qdrant to InMemory, so it never reaches this switch.
func NewConversationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ConversationStore, error) {
	switch cfg.ConversationStorageProvider {
	case config.StorageInMemory, "":
		return NewInMemoryConversationStore(), nil
	case config.StorageRedis:
		return NewRedisConversationStore(ctx, cfg, logger)
	case config.StorageSQLite:
		return NewSQLiteConversationStore(ctx, cfg, logger)
	case config.StorageFileSystem:
		return NewFileSystemConversationStore(cfg.ConversationDir, logger)
	default:
		return nil, smarterrors.Wrapf(smarterrors.ErrInvalidConfiguration,
			"unknown conversation storage provider %q", cfg.ConversationStorageProvider)
	}
}
