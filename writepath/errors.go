package writepath

import "github.com/ceyewan/shardkit/xerrors"

var (
	// ErrMissingTarget 实体没有绑定连接，调用方也没有提供 target
	ErrMissingTarget = xerrors.Wrap(xerrors.ErrMissingTarget, "writepath: no target connection")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrConfiguration, "writepath: invalid config")
)
