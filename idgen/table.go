package idgen

import (
	"context"

	"gorm.io/gorm"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/xerrors"
)

// Counter 计数表的行结构，表名即命名空间
//
// Marker 只会写入 true，唯一索引保证表中最多一行。
type Counter struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	Marker *bool `gorm:"uniqueIndex;default:true"`
}

// TableStrategy 基于计数表的 ID 生成策略
type TableStrategy struct {
	cluster db.Cluster
	retry   RetryConfig
	logger  clog.Logger
	inst    instruments
}

var _ Strategy = (*TableStrategy)(nil)

// NewTableStrategy 创建计数表策略
func NewTableStrategy(cluster db.Cluster, cfg *Config, opts ...Option) (*TableStrategy, error) {
	if cluster == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "db cluster is required for table strategy")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts...)
	return &TableStrategy{
		cluster: cluster,
		retry:   cfg.Retry,
		logger:  o.logger.With(clog.String("strategy", StrategyTable)),
		inst:    newInstruments(o.meter),
	}, nil
}

// EnsureNamespace 在分片上创建命名空间的计数表
func (s *TableStrategy) EnsureNamespace(ctx context.Context, shard, namespace string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}
	gdb, err := s.cluster.DB(ctx, shard)
	if err != nil {
		return err
	}
	if err := gdb.Table(namespace).AutoMigrate(&Counter{}); err != nil {
		return xerrors.Wrapf(err, "migrate counter table %s on shard %s", namespace, shard)
	}
	return nil
}

// NextID 插入标记行取得自增值并删除该行，冲突时有限次重试
func (s *TableStrategy) NextID(ctx context.Context, shard, namespace string) (int64, error) {
	if err := validateNamespace(namespace); err != nil {
		return 0, err
	}
	gdb, err := s.cluster.DB(ctx, shard)
	if err != nil {
		return 0, err
	}

	for attempt := 0; ; attempt++ {
		id, err := s.claim(ctx, gdb, namespace)
		if err == nil {
			s.inst.recordGenerated(ctx, StrategyTable, shard, namespace)
			return id, nil
		}
		if !xerrors.IsRetryable(err) {
			return 0, xerrors.Wrapf(err, "next id on shard %s namespace %s", shard, namespace)
		}
		if attempt+1 >= s.retry.MaxAttempts {
			s.logger.WarnContext(ctx, "counter contention retry budget exhausted",
				clog.String("shard", shard),
				clog.String("namespace", namespace),
				clog.Int("attempts", attempt+1),
			)
			return 0, xerrors.Wrapf(ErrContention, "shard %s namespace %s: gave up after %d attempts", shard, namespace, attempt+1)
		}

		s.inst.retries.Inc(ctx)
		wait := s.retry.backoff(attempt)
		s.logger.DebugContext(ctx, "counter contention, retrying",
			clog.String("shard", shard),
			clog.String("namespace", namespace),
			clog.Int("attempt", attempt+1),
			clog.Duration("backoff", wait),
		)
		if err := sleep(ctx, wait); err != nil {
			return 0, err
		}
	}
}

// claim 执行一次插入删除，唯一约束冲突返回可重试的 ErrContention
func (s *TableStrategy) claim(ctx context.Context, gdb *gorm.DB, namespace string) (int64, error) {
	marker := true
	row := Counter{Marker: &marker}
	if err := gdb.Table(namespace).Create(&row).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return 0, xerrors.Retryable(ErrContention)
		}
		return 0, err
	}

	if err := s.release(ctx, gdb, namespace, row.ID); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// release 删除标记行，失败时有限次重试
//
// 取消的 ctx 不能留下标记行，否则后续调用会一直冲突，因此删除不受 ctx 取消影响。
// 重试耗尽返回 ErrStaleCounter，该 ID 作废，需要 Clear 后才能继续生成。
func (s *TableStrategy) release(ctx context.Context, gdb *gorm.DB, namespace string, id int64) error {
	cleanupCtx := context.WithoutCancel(ctx)
	cleanup := gdb.WithContext(cleanupCtx)
	var err error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			_ = sleep(cleanupCtx, s.retry.backoff(attempt-1))
		}
		if err = cleanup.Table(namespace).Delete(&Counter{}, id).Error; err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "failed to delete counter row",
			clog.String("namespace", namespace),
			clog.Int64("id", id),
			clog.Int("attempt", attempt+1),
			clog.Error(err),
		)
	}
	s.logger.ErrorContext(ctx, "counter row left behind, clear the counter table",
		clog.String("namespace", namespace),
		clog.Int64("id", id),
	)
	return xerrors.Wrapf(ErrStaleCounter, "namespace %s id %d: %v", namespace, id, err)
}

// Clear 删除计数表中残留的标记行
//
// 进程在插入与删除之间崩溃会留下标记行，之后所有调用都会冲突直到重试耗尽。
func (s *TableStrategy) Clear(ctx context.Context, shard, namespace string) (int64, error) {
	if err := validateNamespace(namespace); err != nil {
		return 0, err
	}
	gdb, err := s.cluster.DB(ctx, shard)
	if err != nil {
		return 0, err
	}
	res := gdb.Table(namespace).Where("1 = 1").Delete(&Counter{})
	if res.Error != nil {
		return 0, xerrors.Wrapf(res.Error, "clear counter table %s on shard %s", namespace, shard)
	}
	if res.RowsAffected > 0 {
		s.logger.WarnContext(ctx, "cleared stale counter rows",
			clog.String("shard", shard),
			clog.String("namespace", namespace),
			clog.Int64("rows", res.RowsAffected),
		)
	}
	return res.RowsAffected, nil
}
