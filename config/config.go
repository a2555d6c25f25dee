package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AI provider identifiers.
const (
	ProviderOpenAI      = "OpenAI"
	ProviderAnthropic   = "Anthropic"
	ProviderGemini      = "Gemini"
	ProviderAzureOpenAI = "AzureOpenAI"
	ProviderCustom      = "Custom"
)

// Storage provider identifiers.
const (
	StorageInMemory   = "InMemory"
	StorageRedis      = "Redis"
	StorageQdrant     = "Qdrant"
	StoragePostgres   = "Postgres"
	StorageSQLite     = "SQLite"
	StorageFileSystem = "FileSystem"
)

// RetryPolicy controls how delays grow between retry attempts.
type RetryPolicy string

const (
	RetryNone        RetryPolicy = "None"
	RetryFixed       RetryPolicy = "FixedDelay"
	RetryLinear      RetryPolicy = "LinearBackoff"
	RetryExponential RetryPolicy = "ExponentialBackoff"
)

// DatabaseConnection describes one relational target for the SQL coordinator.
type DatabaseConnection struct {
	ID               string `mapstructure:"id"`
	Name             string `mapstructure:"name"`
	Type             string `mapstructure:"type"` // sqlite | postgres | mysql | sqlserver
	ConnectionString string `mapstructure:"connection_string"`
	Description      string `mapstructure:"description"`
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
}

// Features toggles whole retrieval surfaces on or off globally; per-request
// SearchOptions can only narrow these, never widen them.
type Features struct {
	EnableDocumentSearch bool `mapstructure:"ENABLE_DOCUMENT_SEARCH"`
	EnableDatabaseSearch bool `mapstructure:"ENABLE_DATABASE_SEARCH"`
	EnableAudioParsing   bool `mapstructure:"ENABLE_AUDIO_PARSING"`
	EnableImageParsing   bool `mapstructure:"ENABLE_IMAGE_PARSING"`
}

// Config holds the application's configuration.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AIProvider              string   `mapstructure:"AI_PROVIDER"`
	FallbackAIProviders     []string `mapstructure:"FALLBACK_AI_PROVIDERS"`
	EnableFallbackProviders bool     `mapstructure:"ENABLE_FALLBACK_PROVIDERS"`
	Model                   string   `mapstructure:"MODEL"`
	EmbeddingModel          string   `mapstructure:"EMBEDDING_MODEL"`
	EmbeddingDimension      int      `mapstructure:"EMBEDDING_DIMENSION"`
	OpenAIAPIKey            string   `mapstructure:"OPENAI_API_KEY"`
	AnthropicAPIKey         string   `mapstructure:"ANTHROPIC_API_KEY"`
	GeminiAPIKey            string   `mapstructure:"GEMINI_API_KEY"`
	AzureOpenAIEndpoint     string   `mapstructure:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIAPIKey       string   `mapstructure:"AZURE_OPENAI_API_KEY"`
	CustomEndpoint          string   `mapstructure:"CUSTOM_ENDPOINT"`
	CustomAPIKey            string   `mapstructure:"CUSTOM_API_KEY"`

	StorageProvider             string `mapstructure:"STORAGE_PROVIDER"`
	ConversationStorageProvider string `mapstructure:"CONVERSATION_STORAGE_PROVIDER"`
	RedisAddress                string `mapstructure:"REDIS_ADDRESS"`
	RedisPassword               string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                     int    `mapstructure:"REDIS_DB"`
	QdrantHost                  string `mapstructure:"QDRANT_HOST"`
	QdrantPort                  int    `mapstructure:"QDRANT_PORT"`
	QdrantAPIKey                string `mapstructure:"QDRANT_API_KEY"`
	QdrantCollection            string `mapstructure:"QDRANT_COLLECTION"`
	PostgresConnString          string `mapstructure:"POSTGRES_CONN_STRING"`
	SQLitePath                  string `mapstructure:"SQLITE_PATH"`
	ConversationDir             string `mapstructure:"CONVERSATION_DIR"`

	MaxChunkSize int `mapstructure:"MAX_CHUNK_SIZE"`
	MinChunkSize int `mapstructure:"MIN_CHUNK_SIZE"`
	ChunkOverlap int `mapstructure:"CHUNK_OVERLAP"`

	MaxRetryAttempts       int           `mapstructure:"MAX_RETRY_ATTEMPTS"`
	RetryDelayMs           time.Duration `mapstructure:"RETRY_DELAY_MS"`
	RetryPolicy            RetryPolicy   `mapstructure:"RETRY_POLICY"`
	LLMRequestTimeout      time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	EmbeddingMinIntervalMs time.Duration `mapstructure:"EMBEDDING_MIN_INTERVAL_MS"`
	EmbeddingBatchSize     int           `mapstructure:"EMBEDDING_BATCH_SIZE"`
	EmbeddingCacheSize     int           `mapstructure:"EMBEDDING_CACHE_SIZE"`

	MaxSearchResults     int `mapstructure:"MAX_SEARCH_RESULTS"`
	ContextMaxBytes      int `mapstructure:"CONTEXT_MAX_BYTES"`
	TopChunksPerDoc      int `mapstructure:"TOP_CHUNKS_PER_DOC"`
	MaxConversationTurns int `mapstructure:"MAX_CONVERSATION_TURNS"`

	DatabaseConnections                 []DatabaseConnection `mapstructure:"DATABASE_CONNECTIONS"`
	EnableAutoSchemaAnalysis            bool                 `mapstructure:"ENABLE_AUTO_SCHEMA_ANALYSIS"`
	EnablePeriodicSchemaRefresh         bool                 `mapstructure:"ENABLE_PERIODIC_SCHEMA_REFRESH"`
	DefaultSchemaRefreshIntervalMinutes time.Duration        `mapstructure:"DEFAULT_SCHEMA_REFRESH_INTERVAL_MINUTES"`

	MaxRowsPerQuery         int           `mapstructure:"MAX_ROWS_PER_QUERY"`
	QueryTimeout            time.Duration `mapstructure:"QUERY_TIMEOUT_SECONDS"`
	StreamingBatchSize      int           `mapstructure:"STREAMING_BATCH_SIZE"`
	MaxMemoryThresholdMB    int           `mapstructure:"MAX_MEMORY_THRESHOLD_MB"`
	MaxDegreeOfParallelism  int           `mapstructure:"MAX_DEGREE_OF_PARALLELISM"`
	EnableQueryCache        bool          `mapstructure:"ENABLE_QUERY_CACHE"`
	QueryCacheTTL           time.Duration `mapstructure:"QUERY_CACHE_TTL_MINUTES"`
	SensitiveColumnPatterns []string      `mapstructure:"SENSITIVE_COLUMN_PATTERNS"`

	Features Features `mapstructure:",squash"`

	ListenAddress string `mapstructure:"LISTEN_ADDRESS"`
}

// Load reads config.yaml plus environment overrides and applies defaults for
// every knob. It fails fast only on unmarshal errors.
func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("AI_PROVIDER", ProviderOpenAI)
	viper.SetDefault("FALLBACK_AI_PROVIDERS", []string{})
	viper.SetDefault("ENABLE_FALLBACK_PROVIDERS", false)
	viper.SetDefault("MODEL", "gpt-4o-mini")
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	viper.SetDefault("EMBEDDING_DIMENSION", 1536)

	viper.SetDefault("STORAGE_PROVIDER", StorageInMemory)
	viper.SetDefault("CONVERSATION_STORAGE_PROVIDER", "")
	viper.SetDefault("REDIS_ADDRESS", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("QDRANT_HOST", "localhost")
	viper.SetDefault("QDRANT_PORT", 6334)
	viper.SetDefault("QDRANT_COLLECTION", "smartrag-chunks")
	viper.SetDefault("SQLITE_PATH", "smartrag.db")
	viper.SetDefault("CONVERSATION_DIR", "conversations")

	viper.SetDefault("MAX_CHUNK_SIZE", 1000)
	viper.SetDefault("MIN_CHUNK_SIZE", 100)
	viper.SetDefault("CHUNK_OVERLAP", 200)

	viper.SetDefault("MAX_RETRY_ATTEMPTS", 3)
	viper.SetDefault("RETRY_DELAY_MS", 1000)
	viper.SetDefault("RETRY_POLICY", string(RetryExponential))
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 120)
	viper.SetDefault("EMBEDDING_MIN_INTERVAL_MS", 0)
	viper.SetDefault("EMBEDDING_BATCH_SIZE", 16)
	viper.SetDefault("EMBEDDING_CACHE_SIZE", 2048)

	viper.SetDefault("MAX_SEARCH_RESULTS", 20)
	viper.SetDefault("CONTEXT_MAX_BYTES", 12000)
	viper.SetDefault("TOP_CHUNKS_PER_DOC", 5)
	viper.SetDefault("MAX_CONVERSATION_TURNS", 10)

	viper.SetDefault("ENABLE_AUTO_SCHEMA_ANALYSIS", true)
	viper.SetDefault("ENABLE_PERIODIC_SCHEMA_REFRESH", true)
	viper.SetDefault("DEFAULT_SCHEMA_REFRESH_INTERVAL_MINUTES", 60)

	viper.SetDefault("MAX_ROWS_PER_QUERY", 1000)
	viper.SetDefault("QUERY_TIMEOUT_SECONDS", 30)
	viper.SetDefault("STREAMING_BATCH_SIZE", 1000)
	viper.SetDefault("MAX_MEMORY_THRESHOLD_MB", 500)
	viper.SetDefault("MAX_DEGREE_OF_PARALLELISM", 3)
	viper.SetDefault("ENABLE_QUERY_CACHE", true)
	viper.SetDefault("QUERY_CACHE_TTL_MINUTES", 30)
	viper.SetDefault("SENSITIVE_COLUMN_PATTERNS", []string{
		"password", "passwd", "secret", "token", "apikey", "api_key",
		"ssn", "social_security", "credit_card", "card_number", "cvv",
	})

	viper.SetDefault("ENABLE_DOCUMENT_SEARCH", true)
	viper.SetDefault("ENABLE_DATABASE_SEARCH", true)
	viper.SetDefault("ENABLE_AUDIO_PARSING", true)
	viper.SetDefault("ENABLE_IMAGE_PARSING", true)

	viper.SetDefault("LISTEN_ADDRESS", ":8080")

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical. Fail fast during bootstrap.
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.normalize(logger)
	return &config
}

func (c *Config) normalize(logger *zap.Logger) {
	// Convert plain-number keys into proper durations.
	c.RetryDelayMs = c.RetryDelayMs * time.Millisecond
	c.EmbeddingMinIntervalMs = c.EmbeddingMinIntervalMs * time.Millisecond
	c.LLMRequestTimeout = c.LLMRequestTimeout * time.Second
	c.QueryTimeout = c.QueryTimeout * time.Second
	c.QueryCacheTTL = c.QueryCacheTTL * time.Minute
	c.DefaultSchemaRefreshIntervalMinutes = c.DefaultSchemaRefreshIntervalMinutes * time.Minute

	switch c.RetryPolicy {
	case RetryNone, RetryFixed, RetryLinear, RetryExponential:
	default:
		if logger != nil {
			logger.Warn("Unknown retry policy, using exponential backoff",
				zap.String("retry_policy", string(c.RetryPolicy)))
		}
		c.RetryPolicy = RetryExponential
	}

	// Qdrant cannot back conversations; fall back silently to InMemory.
	if c.ConversationStorageProvider == "" {
		if c.StorageProvider == StorageQdrant {
			c.ConversationStorageProvider = StorageInMemory
		} else {
			c.ConversationStorageProvider = c.StorageProvider
		}
	} else if c.ConversationStorageProvider == StorageQdrant {
		if logger != nil {
			logger.Warn("Qdrant does not back conversations, falling back to InMemory")
		}
		c.ConversationStorageProvider = StorageInMemory
	}

	for i := range c.DatabaseConnections {
		conn := &c.DatabaseConnections[i]
		conn.Type = strings.ToLower(strings.TrimSpace(conn.Type))
		if conn.ID == "" {
			conn.ID = conn.Name
		}
		if conn.MaxOpenConns <= 0 {
			conn.MaxOpenConns = 10
		}
	}
}

// RetryDelay returns the wait before retry attempt (1-based) under the
// configured policy.
func (c *Config) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.RetryDelayMs
	if base <= 0 {
		base = time.Second
	}
	switch c.RetryPolicy {
	case RetryNone:
		return 0
	case RetryFixed:
		return base
	case RetryLinear:
		return base * time.Duration(attempt)
	default:
		return base * time.Duration(1<<(attempt-1))
	}
}
