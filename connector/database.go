package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/xerrors"
)

// databaseConnector 是三种关系库方言共用的 GORM 连接器
type databaseConnector struct {
	name      string
	dialect   string
	dialector func() gorm.Dialector
	pool      PoolConfig

	opts     *options
	logger   clog.Logger
	connects metrics.Counter

	mu      sync.RWMutex
	db      *gorm.DB
	healthy atomic.Bool
}

func newDatabaseConnector(name, dialect string, pool PoolConfig, dialector func() gorm.Dialector, opts ...Option) *databaseConnector {
	o := applyOptions(opts...)
	return &databaseConnector{
		name:      name,
		dialect:   dialect,
		dialector: dialector,
		pool:      pool,
		opts:      o,
		logger:    o.logger.With(clog.String("connector", dialect), clog.String("name", name)),
		connects:  metrics.MustCounter(o.meter, "connector_connect_total", "连接建立次数"),
	}
}

// Connect 打开 GORM 实例、配置连接池并探测
func (c *databaseConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect")

	// TranslateError 让各方言的唯一键冲突统一为 gorm.ErrDuplicatedKey
	db, err := gorm.Open(c.dialector(), &gorm.Config{
		Logger:         c.opts.gormLogger,
		TranslateError: true,
	})
	if err != nil {
		c.failed(ctx, err)
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.dialect, c.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.failed(ctx, err)
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: failed to get db instance: %v", c.dialect, c.name, err)
	}

	sqlDB.SetMaxIdleConns(c.pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.pool.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		c.failed(ctx, err)
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: ping failed: %v", c.dialect, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.connects.Inc(ctx, metrics.L(metrics.LabelBackend, c.dialect), metrics.L(metrics.LabelOutcome, metrics.OutcomeSuccess))
	c.logger.Info("successfully connected")
	return nil
}

func (c *databaseConnector) failed(ctx context.Context, err error) {
	c.logger.Error("failed to connect", clog.Error(err))
	c.connects.Inc(ctx, metrics.L(metrics.LabelBackend, c.dialect), metrics.L(metrics.LabelOutcome, metrics.OutcomeError))
}

// Close 关闭底层 *sql.DB
func (c *databaseConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close connection", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info("connection closed")
	return nil
}

func (c *databaseConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "%s connector[%s]", c.dialect, c.name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.dialect, c.name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *databaseConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *databaseConnector) Name() string {
	return c.name
}

func (c *databaseConnector) Dialect() string {
	return c.dialect
}

func (c *databaseConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
