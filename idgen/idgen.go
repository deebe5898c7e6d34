// Package idgen 为分片生成单分片内唯一且严格递增的整数 ID。
//
// 两种策略：
//   - TableStrategy：每个命名空间一张计数表，借助数据库自增主键与布尔标记列上的唯一约束，
//     表中任意时刻最多一行。插入成功即得到新 ID，随后立即删除该行；
//     唯一约束冲突表示有并发调用者持有该行，按抖动指数退避有限次重试。
//   - RedisStrategy：后端不具备自增与唯一约束时的替代实现，对每个 (分片, 命名空间) 执行 INCR。
//
// ID 只在同一分片、同一命名空间内唯一，需要全局唯一时与分片名组合为 ShardedID：
//
//	gen, _ := idgen.NewTableStrategy(cluster, &idgen.Config{}, idgen.WithLogger(logger))
//	_ = gen.EnsureNamespace(ctx, "shard_a", "order_ids")
//	seq, _ := gen.NextID(ctx, "shard_a", "order_ids")
//	id := idgen.ShardedID{Shard: "shard_a", Seq: seq} // "shard_a:1"
package idgen

import (
	"context"
	"regexp"

	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/xerrors"
)

// Strategy ID 生成策略
type Strategy interface {
	// NextID 返回 shard 上 namespace 的下一个 ID
	NextID(ctx context.Context, shard, namespace string) (int64, error)
}

// New 按 cfg.Strategy 创建策略，table 需要 cluster，redis 需要 redis 连接器
func New(cfg *Config, cluster db.Cluster, redis connector.RedisConnector, opts ...Option) (Strategy, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var (
		s   Strategy
		err error
	)
	switch cfg.Strategy {
	case StrategyRedis:
		s, err = NewRedisStrategy(redis, cfg, opts...)
	default:
		s, err = NewTableStrategy(cluster, cfg, opts...)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

var namespacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// validateNamespace 命名空间会作为表名拼进 SQL，只允许标识符字符
func validateNamespace(namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return xerrors.Wrapf(ErrInvalidNamespace, "%q", namespace)
	}
	return nil
}
