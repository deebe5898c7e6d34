package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/xerrors"
)

type testOrder struct {
	ID     uint   `gorm:"primaryKey"`
	Number string `gorm:"uniqueIndex;size:64"`
}

func sqliteSource(t *testing.T, shard string) Source {
	return Source{
		Driver: DriverSQLite,
		SQLite: &connector.SQLiteConfig{
			Path: fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), shard),
		},
	}
}

func openTestCluster(t *testing.T, shards ...string) Cluster {
	t.Helper()
	sources := make(map[string]Source, len(shards))
	for _, s := range shards {
		sources[s] = sqliteSource(t, s)
	}
	c, err := Open(context.Background(), &Config{Sources: sources, SilentSQL: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenAndConn(t *testing.T) {
	ctx := context.Background()
	c := openTestCluster(t, "shard_b", "shard_a")

	assert.Equal(t, []string{"shard_a", "shard_b"}, c.Names())

	for _, name := range c.Names() {
		gdb, err := c.DB(ctx, name)
		require.NoError(t, err)
		require.NoError(t, gdb.AutoMigrate(&testOrder{}))
	}

	a, err := c.DB(ctx, "shard_a")
	require.NoError(t, err)
	require.NoError(t, a.Create(&testOrder{Number: "n-1"}).Error)

	// 分片之间数据隔离
	b, err := c.DB(ctx, "shard_b")
	require.NoError(t, err)
	var count int64
	require.NoError(t, b.Model(&testOrder{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = c.Conn("shard_z")
	assert.ErrorIs(t, err, ErrUnknownShard)
	assert.ErrorIs(t, err, xerrors.ErrInvalidShard)
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()
	c := openTestCluster(t, "shard_a")
	gdb, err := c.DB(ctx, "shard_a")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&testOrder{}))

	boom := errors.New("boom")
	err = c.Transaction(ctx, "shard_a", func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Create(&testOrder{Number: "rolled-back"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, c.Transaction(ctx, "shard_a", func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&testOrder{Number: "committed"}).Error
	}))

	var numbers []string
	require.NoError(t, gdb.Model(&testOrder{}).Pluck("number", &numbers).Error)
	assert.Equal(t, []string{"committed"}, numbers)

	err = c.Transaction(ctx, "missing", func(context.Context, *gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownShard)
}

func TestClose(t *testing.T) {
	c := openTestCluster(t, "shard_a")
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err := c.Conn("shard_a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenInvalidConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil", nil},
		{"no sources", &Config{}},
		{"unknown driver", &Config{Sources: map[string]Source{"a": {Driver: "oracle"}}}},
		{"missing section", &Config{Sources: map[string]Source{"a": {Driver: DriverMySQL}}}},
		{"bad sharding rule", &Config{
			Sources:       map[string]Source{"a": sqliteSource(t, "a")},
			ShardingRules: []ShardingRule{{ShardingKey: "user_id", Tables: []string{"orders"}}},
		}},
		{"bad primary key generator", &Config{
			Sources: map[string]Source{"a": sqliteSource(t, "a")},
			ShardingRules: []ShardingRule{{
				ShardingKey: "user_id", NumberOfShards: 4, Tables: []string{"orders"}, PrimaryKey: "uuid",
			}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg)
			assert.ErrorIs(t, err, xerrors.ErrConfiguration)
		})
	}
}

func TestNewBorrowsConnectors(t *testing.T) {
	ctx := context.Background()
	conn, err := connector.NewSQLite(&connector.SQLiteConfig{
		Name: "shard_a",
		Path: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { _ = conn.Close() })

	c, err := New(map[string]connector.DatabaseConnector{"shard_a": conn}, &Config{
		Tracing: true,
		ShardingRules: []ShardingRule{{
			ShardingKey: "user_id", NumberOfShards: 4, Tables: []string{"orders"},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// 借用模式下关闭集群不影响连接器
	assert.NoError(t, conn.HealthCheck(ctx))

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	idle, err := connector.NewSQLite(&connector.SQLiteConfig{Path: "file:idle?mode=memory"})
	require.NoError(t, err)
	_, err = New(map[string]connector.DatabaseConnector{"idle": idle}, nil)
	assert.ErrorIs(t, err, connector.ErrNotConnected)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(errors.New("connection refused")))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: counters.marker")))
	assert.True(t, IsDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry '1' for key 'marker'")))
	assert.True(t, IsDuplicateKey(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")))

	ctx := context.Background()
	c := openTestCluster(t, "shard_a")
	gdb, err := c.DB(ctx, "shard_a")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&testOrder{}))
	require.NoError(t, gdb.Create(&testOrder{Number: "dup"}).Error)
	assert.True(t, IsDuplicateKey(gdb.Create(&testOrder{Number: "dup"}).Error))
}

func TestGormLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := clog.New(&clog.Config{Level: "debug", Format: "json"}, clog.WithWriter(&buf))
	require.NoError(t, err)

	gl := NewGormLogger(log, 10*time.Millisecond, false)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), sql, nil)
	assert.Contains(t, buf.String(), `"msg":"sql"`)

	buf.Reset()
	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow sql")

	buf.Reset()
	gl.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "sql error")

	buf.Reset()
	gl.Trace(ctx, time.Now(), sql, gorm.ErrDuplicatedKey)
	assert.Contains(t, buf.String(), "sql conflict")

	buf.Reset()
	gl.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Contains(t, buf.String(), `"msg":"sql"`)

	buf.Reset()
	gl.LogMode(logger.Silent).Trace(ctx, time.Now(), sql, errors.New("ignored"))
	assert.Empty(t, buf.String())
}
