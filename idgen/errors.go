package idgen

import "github.com/ceyewan/shardkit/xerrors"

var (
	// ErrContention 计数表唯一约束冲突，可重试
	ErrContention = xerrors.Wrap(xerrors.ErrContention, "idgen: counter row contention")

	// ErrStaleCounter 标记行删除失败，计数表需要 Clear
	ErrStaleCounter = xerrors.New("idgen: counter row left behind")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrConfiguration, "idgen: invalid config")

	// ErrInvalidNamespace 命名空间不是合法的表名
	ErrInvalidNamespace = xerrors.Wrap(xerrors.ErrInvalidInput, "idgen: invalid namespace")

	// ErrInvalidShardedID 无法解析的分片 ID
	ErrInvalidShardedID = xerrors.Wrap(xerrors.ErrInvalidInput, "idgen: invalid sharded id")
)
