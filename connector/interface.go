// Package connector 管理 shardkit 依赖的外部连接：每个分片一个关系库连接，
// 以及 ID 生成与映射存储可选的 Redis、Etcd 连接。
//
// 连接器遵循"谁创建，谁负责释放"：
//
//	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Path: "file::memory:?cache=shared"})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	db := conn.GetClient()
//
// Connect 幂等，Close 之后 GetClient 返回 nil。
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为
type Connector interface {
	// Connect 建立连接，可重复调用
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，可重复调用
	Close() error

	// HealthCheck 发送一次探测请求并刷新健康状态
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次探测的结果
	IsHealthy() bool

	// Name 返回连接器名称，用于日志与指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector
	GetClient() T
}

// DatabaseConnector 关系库连接器，MySQL、PostgreSQL、SQLite 共用
type DatabaseConnector interface {
	TypedConnector[*gorm.DB]

	// Dialect 返回方言名称：mysql、postgres、sqlite
	Dialect() string
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}
