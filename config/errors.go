package config

import "github.com/ceyewan/shardkit/xerrors"

var (
	// ErrValidationFailed 配置校验失败
	ErrValidationFailed = xerrors.Wrap(xerrors.ErrConfiguration, "config: validation failed")

	// ErrEmpty 没有从任何来源加载到配置
	ErrEmpty = xerrors.Wrap(xerrors.ErrConfiguration, "config: configuration is empty")
)
