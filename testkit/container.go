package testkit

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcetcd "github.com/testcontainers/testcontainers-go/modules/etcd"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ceyewan/shardkit/connector"
)

// requireDocker 短测试模式或没有可用的容器运行时时跳过
func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// NewEtcdConnector 启动 etcd 容器并返回已连接的连接器
func NewEtcdConnector(t *testing.T) connector.EtcdConnector {
	requireDocker(t)
	ctx := context.Background()

	container, err := tcetcd.Run(ctx, "quay.io/coreos/etcd:v3.5.9")
	require.NoError(t, err, "failed to start etcd container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "2379")
	require.NoError(t, err)

	conn, err := connector.NewEtcd(&connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   []string{fmt.Sprintf("%s:%s", host, port.Port())},
		DialTimeout: 5 * time.Second,
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewMySQLConfig 启动 MySQL 容器并返回连接配置
func NewMySQLConfig(t *testing.T) *connector.MySQLConfig {
	requireDocker(t)
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("shardkit"),
		mysql.WithUsername("shardkit"),
		mysql.WithPassword("shardkit"),
	)
	require.NoError(t, err, "failed to start mysql container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &connector.MySQLConfig{
		Name:     "test-mysql",
		Host:     host,
		Port:     port,
		Username: "shardkit",
		Password: "shardkit",
		Database: "shardkit",
	}
}

// NewPostgreSQLConfig 启动 PostgreSQL 容器并返回连接配置
func NewPostgreSQLConfig(t *testing.T) *connector.PostgreSQLConfig {
	requireDocker(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("shardkit"),
		postgres.WithUsername("shardkit"),
		postgres.WithPassword("shardkit"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start postgresql container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &connector.PostgreSQLConfig{
		Name:     "test-postgresql",
		Host:     host,
		Port:     port,
		Username: "shardkit",
		Password: "shardkit",
		Database: "shardkit",
	}
}

// ConnectWithRetry 反复 Connect 直到成功或超时，数据库容器端口就绪后仍需要启动时间
func ConnectWithRetry(t *testing.T, conn connector.Connector, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		err := conn.Connect(ctx)
		if err == nil {
			t.Cleanup(func() {
				_ = conn.Close()
			})
			return
		}
		select {
		case <-ctx.Done():
			require.NoError(t, err, "timeout waiting for %s", conn.Name())
		case <-time.After(2 * time.Second):
		}
	}
}
