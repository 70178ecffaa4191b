package state

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mspro-labs/stock-watch/internal/core/errx"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/models"
)

// RedisStore keeps the snapshot JSON under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore parses url, connects and pings.
func NewRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	if url == "" {
		return nil, errx.Config("open redis state", errors.New("REDIS_URL is required for the redis backend"))
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errx.Config("open redis state", err)
	}
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errx.State("ping redis", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) LoadPrevious(ctx context.Context) models.Snapshot {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logx.Warn().Err(err).Str("key", s.key).Msg("cannot read previous state, starting empty")
		}
		return models.Snapshot{}
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap == nil {
		logx.Warn().Err(err).Str("key", s.key).Msg("previous state is corrupt, starting empty")
		return models.Snapshot{}
	}
	return snap
}

func (s *RedisStore) SaveCurrent(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errx.State("encode snapshot", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errx.State("save snapshot", err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errx.State("reset snapshot", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
