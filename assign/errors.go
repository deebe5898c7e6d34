package assign

import "github.com/ceyewan/shardkit/xerrors"

var (
	// ErrNoCandidates 分片组没有主分片
	ErrNoCandidates = xerrors.Wrap(xerrors.ErrConfiguration, "assign: no primary shards for group")

	// ErrInvalidShard 选择器返回了候选集合之外的分片
	ErrInvalidShard = xerrors.Wrap(xerrors.ErrInvalidShard, "assign: selector returned an invalid shard")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrConfiguration, "assign: invalid config")
)
