// Package db 管理分片集群：每个分片一个 *gorm.DB，按分片名称取用。
//
// Cluster 是显式写入路径、ID 生成与映射存储共享的连接解析器。
// 两种构造方式：
//
//	// 拥有模式：根据配置创建并连接所有分片，Close 时关闭连接
//	cluster, err := db.Open(ctx, &db.Config{Sources: sources}, db.WithLogger(logger))
//
//	// 借用模式：复用调用方管理的连接器，Close 不关闭底层连接
//	cluster, err := db.New(map[string]connector.DatabaseConnector{"shard_a": conn}, nil)
//
// 可选能力：
//   - ShardingRules：基于 gorm.io/sharding 的分片内分表
//   - Tracing：基于 otelgorm 的 SQL 链路追踪
package db

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	"gorm.io/sharding"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/xerrors"
)

// Cluster 分片连接集合
type Cluster interface {
	// Conn 返回分片的 *gorm.DB，未配置的分片返回 ErrUnknownShard
	Conn(name string) (*gorm.DB, error)

	// DB 返回绑定了 ctx 的 *gorm.DB
	DB(ctx context.Context, name string) (*gorm.DB, error)

	// Transaction 在指定分片上执行事务，不支持跨分片事务
	Transaction(ctx context.Context, name string, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Names 返回所有分片名称，按字典序排列
	Names() []string

	// Close 释放集群持有的连接
	Close() error
}

var primaryKeyGenerators = map[string]int{
	"snowflake":      sharding.PKSnowflake,
	"pg_sequence":    sharding.PKPGSequence,
	"mysql_sequence": sharding.PKMySQLSequence,
}

type cluster struct {
	conns  map[string]*gorm.DB
	owned  []connector.DatabaseConnector
	logger clog.Logger
	closed atomic.Bool
}

// Open 根据 cfg.Sources 创建并连接所有分片
//
// 任一分片连接失败时关闭已建立的连接并返回错误。
func Open(ctx context.Context, cfg *Config, opts ...Option) (Cluster, error) {
	if cfg == nil || len(cfg.Sources) == 0 {
		return nil, xerrors.Wrap(ErrInvalidConfig, "no shard sources configured")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts...)
	logger := o.logger.WithNamespace("db")

	connOpts := []connector.Option{
		connector.WithLogger(o.logger),
		connector.WithMeter(o.meter),
		connector.WithGormLogger(NewGormLogger(logger, cfg.SlowThreshold, cfg.SilentSQL)),
	}

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	conns := make(map[string]connector.DatabaseConnector, len(names))
	owned := make([]connector.DatabaseConnector, 0, len(names))
	closeAll := func() {
		for _, c := range owned {
			_ = c.Close()
		}
	}
	for _, name := range names {
		conn, err := cfg.Sources[name].connector(name, connOpts...)
		if err != nil {
			closeAll()
			return nil, err
		}
		if err := conn.Connect(ctx); err != nil {
			closeAll()
			return nil, xerrors.Wrapf(err, "connect shard %q", name)
		}
		owned = append(owned, conn)
		conns[name] = conn
	}

	c, err := build(conns, cfg, o)
	if err != nil {
		closeAll()
		return nil, err
	}
	c.owned = owned
	return c, nil
}

// New 基于已连接的连接器创建集群，连接器的生命周期由调用方负责
func New(conns map[string]connector.DatabaseConnector, cfg *Config, opts ...Option) (Cluster, error) {
	if len(conns) == 0 {
		return nil, xerrors.Wrap(ErrInvalidConfig, "no shard connectors provided")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c, err := build(conns, cfg, applyOptions(opts...))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func build(conns map[string]connector.DatabaseConnector, cfg *Config, o *options) (*cluster, error) {
	logger := o.logger.WithNamespace("db")
	c := &cluster{
		conns:  make(map[string]*gorm.DB, len(conns)),
		logger: logger,
	}
	gl := NewGormLogger(logger, cfg.SlowThreshold, cfg.SilentSQL)

	for name, conn := range conns {
		gdb := conn.GetClient()
		if gdb == nil {
			return nil, xerrors.Wrapf(connector.ErrNotConnected, "shard %q", name)
		}
		gdb = gdb.Session(&gorm.Session{Logger: gl})

		if cfg.Tracing {
			pluginOpts := []otelgorm.Option{otelgorm.WithDBName(name)}
			if o.tracerProvider != nil {
				pluginOpts = append(pluginOpts, otelgorm.WithTracerProvider(o.tracerProvider))
			}
			if err := gdb.Use(otelgorm.NewPlugin(pluginOpts...)); err != nil {
				return nil, xerrors.Wrapf(err, "shard %q: register tracing plugin", name)
			}
		}
		for _, rule := range cfg.ShardingRules {
			if err := gdb.Use(shardingMiddleware(rule)); err != nil {
				return nil, xerrors.Wrapf(err, "shard %q: register sharding rule for tables %v", name, rule.Tables)
			}
		}

		c.conns[name] = gdb
		logger.Debug("shard registered", clog.String("shard", name), clog.String("dialect", conn.Dialect()))
	}
	return c, nil
}

func shardingMiddleware(rule ShardingRule) *sharding.Sharding {
	tables := make([]any, len(rule.Tables))
	for i, v := range rule.Tables {
		tables[i] = v
	}
	return sharding.Register(sharding.Config{
		ShardingKey:         rule.ShardingKey,
		NumberOfShards:      rule.NumberOfShards,
		PrimaryKeyGenerator: primaryKeyGenerators[rule.PrimaryKey],
	}, tables...)
}

func (c *cluster) Conn(name string) (*gorm.DB, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	gdb, ok := c.conns[name]
	if !ok {
		return nil, xerrors.Wrapf(ErrUnknownShard, "%q", name)
	}
	return gdb, nil
}

func (c *cluster) DB(ctx context.Context, name string) (*gorm.DB, error) {
	gdb, err := c.Conn(name)
	if err != nil {
		return nil, err
	}
	return gdb.WithContext(ctx), nil
}

func (c *cluster) Transaction(ctx context.Context, name string, fn func(ctx context.Context, tx *gorm.DB) error) error {
	gdb, err := c.DB(ctx, name)
	if err != nil {
		return err
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (c *cluster) Names() []string {
	names := make([]string, 0, len(c.conns))
	for name := range c.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *cluster) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, conn := range c.owned {
		if err := conn.Close(); err != nil {
			c.logger.Error("failed to close shard", clog.String("shard", conn.Name()), clog.Error(err))
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}
