package connector

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ceyewan/shardkit/xerrors"
)

// NewSQLite 创建 SQLite 连接器，适合测试与单机场景
//
// 内存库需使用共享缓存 DSN（如 "file:a?mode=memory&cache=shared"），
// 否则连接池中的每个连接都会看到各自独立的空库。
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (DatabaseConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite: config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	path := cfg.Path
	return newDatabaseConnector(cfg.Name, "sqlite", cfg.PoolConfig, func() gorm.Dialector {
		return sqlite.Open(path)
	}, opts...), nil
}
