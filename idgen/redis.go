package idgen

import (
	"context"
	"fmt"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/xerrors"
)

// RedisStrategy 基于 Redis INCR 的 ID 生成策略，原子递增不会产生冲突
type RedisStrategy struct {
	redis  connector.RedisConnector
	prefix string
	logger clog.Logger
	inst   instruments
}

var _ Strategy = (*RedisStrategy)(nil)

// NewRedisStrategy 创建 Redis 策略
func NewRedisStrategy(redis connector.RedisConnector, cfg *Config, opts ...Option) (*RedisStrategy, error) {
	if redis == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "redis connector is required for redis strategy")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	o := applyOptions(opts...)
	return &RedisStrategy{
		redis:  redis,
		prefix: cfg.KeyPrefix,
		logger: o.logger.With(clog.String("strategy", StrategyRedis)),
		inst:   newInstruments(o.meter),
	}, nil
}

func (s *RedisStrategy) key(shard, namespace string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, shard, namespace)
}

// NextID 对 <prefix>:<shard>:<namespace> 执行 INCR
func (s *RedisStrategy) NextID(ctx context.Context, shard, namespace string) (int64, error) {
	if shard == "" {
		return 0, xerrors.Wrap(xerrors.ErrInvalidInput, "idgen: shard is required")
	}
	if err := validateNamespace(namespace); err != nil {
		return 0, err
	}
	client := s.redis.GetClient()
	if client == nil {
		return 0, connector.ErrNotConnected
	}

	key := s.key(shard, namespace)
	id, err := client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to increment sequence",
			clog.String("redis_key", key),
			clog.Error(err),
		)
		return 0, xerrors.Wrapf(err, "redis incr %s", key)
	}
	s.inst.recordGenerated(ctx, StrategyRedis, shard, namespace)
	return id, nil
}
