package pipeline

import "github.com/ceyewan/shardkit/xerrors"

var (
	// ErrInvalidConfig 流水线缺少依赖
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrConfiguration, "pipeline: invalid config")

	// ErrShardMismatch 实体已绑定的连接与分配的分片不一致
	ErrShardMismatch = xerrors.Wrap(xerrors.ErrInvalidShard, "pipeline: entity bound to another connection")
)
