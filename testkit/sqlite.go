package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/db"
)

// NewSQLiteConfig 返回一个独立的共享缓存内存库配置
//
// 单连接的连接池让同一个库上的并发访问串行化，避免共享缓存模式下的表锁错误。
func NewSQLiteConfig(name string) *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: name,
		Path: fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, NewID()),
		PoolConfig: connector.PoolConfig{
			MaxIdleConns: 1,
			MaxOpenConns: 1,
		},
	}
}

// NewSQLiteConnector 获取已连接的 SQLite 连接器（内存数据库）
func NewSQLiteConnector(t *testing.T, name string) connector.DatabaseConnector {
	conn, err := connector.NewSQLite(NewSQLiteConfig(name), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewSQLiteSources 为每个分片名生成内存库配置，供 db.Open 或配置测试使用
func NewSQLiteSources(shards ...string) map[string]db.Source {
	sources := make(map[string]db.Source, len(shards))
	for _, s := range shards {
		sources[s] = db.Source{Driver: db.DriverSQLite, SQLite: NewSQLiteConfig(s)}
	}
	return sources
}

// NewSQLiteCluster 创建由内存 SQLite 组成的分片集群
func NewSQLiteCluster(t *testing.T, shards ...string) db.Cluster {
	cluster, err := db.Open(context.Background(), &db.Config{
		Sources:   NewSQLiteSources(shards...),
		SilentSQL: true,
	}, db.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to open sqlite cluster")
	t.Cleanup(func() {
		_ = cluster.Close()
	})
	return cluster
}

// NewPersistentSQLiteConfig 返回数据库文件位于 t.TempDir() 的配置
func NewPersistentSQLiteConfig(t *testing.T, name string) *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: name,
		Path: fmt.Sprintf("%s/%s.db?_busy_timeout=5000", t.TempDir(), name),
	}
}
