package testkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shardkit/connector"
)

// NewMiniRedis 启动进程内的 miniredis 并返回已连接的连接器
func NewMiniRedis(t *testing.T) (*miniredis.Miniredis, connector.RedisConnector) {
	mr := miniredis.RunT(t)
	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "test-redis",
		Addr: mr.Addr(),
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to miniredis")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return mr, conn
}
