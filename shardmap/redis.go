package shardmap

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/xerrors"
)

// DefaultRedisPrefix RedisStore 的默认键前缀
const DefaultRedisPrefix = "shardkit:shardmap"

// RedisStore 以 SETNX 写入映射，键为 <prefix>:<shard key>
type RedisStore struct {
	client *redis.Client
	prefix string
	logger clog.Logger
}

// NewRedisStore 创建 Redis 映射存储，conn 需已连接
func NewRedisStore(conn connector.RedisConnector, opts ...Option) (*RedisStore, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "redis connector is required and must be connected")
	}
	o := applyOptions("redis", opts...)
	if o.prefix == "" {
		o.prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: conn.GetClient(), prefix: o.prefix, logger: o.logger}, nil
}

func (s *RedisStore) key(shardKey string) string {
	return s.prefix + ":" + shardKey
}

func (s *RedisStore) Record(ctx context.Context, shardKey, shard string) error {
	if err := validateMapping(shardKey, shard); err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(shardKey), shard, 0).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "record mapping failed", clog.String("shard_key", shardKey), clog.Error(err))
		return xerrors.Wrap(err, "shardmap: redis setnx")
	}
	if !ok {
		return xerrors.Wrapf(ErrDuplicateKey, "key %q", shardKey)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, shardKey string) (string, error) {
	if err := validateKey(shardKey); err != nil {
		return "", err
	}
	shard, err := s.client.Get(ctx, s.key(shardKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", xerrors.Wrapf(ErrNotFound, "key %q", shardKey)
	}
	if err != nil {
		return "", xerrors.Wrap(err, "shardmap: redis get")
	}
	return shard, nil
}
