package shardmap

import "github.com/ceyewan/shardkit/xerrors"

var (
	// ErrDuplicateKey key 已有映射
	ErrDuplicateKey = xerrors.Wrap(xerrors.ErrDuplicateKey, "shardmap: mapping already exists")

	// ErrNotFound key 没有映射
	ErrNotFound = xerrors.Wrap(xerrors.ErrNotFound, "shardmap: mapping not found")

	// ErrInvalidShard 写入的分片不是分片组当前的主分片
	ErrInvalidShard = xerrors.Wrap(xerrors.ErrInvalidShard, "shardmap: shard is not a primary choice")

	// ErrInvalidKey key 或分片名不合法
	ErrInvalidKey = xerrors.Wrap(xerrors.ErrInvalidInput, "shardmap: invalid mapping")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrConfiguration, "shardmap: invalid config")
)
