package connector

import "github.com/ceyewan/shardkit/xerrors"

var (
	ErrNotConnected = xerrors.New("connector: not connected")
	ErrConnection   = xerrors.New("connector: connection failed")
	ErrHealthCheck  = xerrors.New("connector: health check failed")

	// ErrConfig 连接配置无效，归入配置错误
	ErrConfig = xerrors.Wrap(xerrors.ErrConfiguration, "connector: invalid config")
)
