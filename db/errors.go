package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ceyewan/shardkit/xerrors"
)

var (
	// ErrInvalidConfig 集群配置无效
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrConfiguration, "db: invalid config")

	// ErrUnknownShard 请求的分片没有配置连接
	ErrUnknownShard = xerrors.Wrap(xerrors.ErrInvalidShard, "db: unknown shard")

	// ErrClosed 集群已关闭
	ErrClosed = xerrors.New("db: cluster closed")
)

// IsDuplicateKey 判断错误是否为唯一约束冲突
//
// 连接器开启了 TranslateError，各方言会转换为 gorm.ErrDuplicatedKey；
// 借用外部 *gorm.DB 时没有这个保证，再按驱动的错误信息兜底。
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "SQLSTATE 23505") || // postgres
		strings.Contains(msg, "duplicate key value")
}
