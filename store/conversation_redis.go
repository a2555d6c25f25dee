package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	convListKeyPrefix = "smartrag:conv:"
	convSessionsKey   = "smartrag:sessions"
)

// RedisConversationStore keeps each session as a Redis list of JSON turns,
// appended with RPUSH so chronological order is the list order.
type RedisConversationStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisConversationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RedisConversationStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return &RedisConversationStore{client: client, logger: logger}, nil
}

func (s *RedisConversationStore) Name() string { return "Redis" }

func (s *RedisConversationStore) GetHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	raw, err := s.client.LRange(ctx, convListKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	turns := make([]types.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn types.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, smarterrors.Wrap(err, "unmarshal conversation turn")
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisConversationStore) Append(ctx context.Context, sessionID, question, answer string, sources []types.SearchSource) error {
	if sessionID == "" {
		return smarterrors.Wrap(smarterrors.ErrInvalidInput, "empty session id")
	}
	turn := types.ConversationTurn{
		Question:  question,
		Answer:    answer,
		Sources:   sources,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return smarterrors.Wrap(err, "marshal conversation turn")
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, convListKeyPrefix+sessionID, data)
	pipe.SAdd(ctx, convSessionsKey, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *RedisConversationStore) GetSourcesForSession(ctx context.Context, sessionID string) ([]types.SearchSource, error) {
	turns, err := s.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return collectSources(turns), nil
}

func (s *RedisConversationStore) GetAllSessionIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, convSessionsKey).Result()
	if err != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisConversationStore) GetSessionTimestamps(ctx context.Context, sessionID string) (time.Time, time.Time, error) {
	turns, err := s.GetHistory(ctx, sessionID)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(turns) == 0 {
		return time.Time{}, time.Time{}, smarterrors.Wrapf(smarterrors.ErrNotFound, "session %s", sessionID)
	}
	return turns[0].Timestamp, turns[len(turns)-1].Timestamp, nil
}

func (s *RedisConversationStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, convSessionsKey, sessionID).Result()
	if err != nil {
		return false, smarterrors.Wrap(smarterrors.ErrStoreUnavailable, err.Error())
	}
	return ok, nil
}
