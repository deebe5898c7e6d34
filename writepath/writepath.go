// Package writepath 把实体写入显式指定的连接，不经过路由。
//
// 实体记住自己绑定的连接：首次绑定后不再改变，之后的保存都落在该连接上。
//
//	type Order struct {
//	    ID   int64
//	    Item string
//	    writepath.Binding
//	}
//
//	w, _ := writepath.New(cluster)
//	err := writepath.Save(ctx, w, &order, "shard_a")
//	err = writepath.BulkInsert(ctx, w, orders, "shard_a")
package writepath

import (
	"context"

	"gorm.io/gorm"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/xerrors"
)

// MetricRowsWritten 写入的行数
const MetricRowsWritten = "writepath_rows_written_total"

// Entity 可以绑定连接的实体
type Entity interface {
	// BoundConnection 返回已绑定的连接名，未绑定时为空
	BoundConnection() string
	BindConnection(name string)
}

// Binding 可嵌入的连接绑定，不参与持久化
type Binding struct {
	conn string
}

func (b *Binding) BoundConnection() string {
	return b.conn
}

func (b *Binding) BindConnection(name string) {
	b.conn = name
}

// Resolver 按名称解析连接，db.Cluster 满足该接口
type Resolver interface {
	Conn(name string) (*gorm.DB, error)
}

// Writer 持有连接解析器与批量写入参数，可并发使用
type Writer struct {
	resolver  Resolver
	batchSize int
	logger    clog.Logger
	rows      metrics.Counter
}

// New 创建 Writer
func New(resolver Resolver, opts ...Option) (*Writer, error) {
	if resolver == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "resolver is required")
	}
	o := applyOptions(opts...)
	return &Writer{
		resolver:  resolver,
		batchSize: o.batchSize,
		logger:    o.logger,
		rows:      metrics.MustCounter(o.meter, MetricRowsWritten, "显式写入路径写入的行数"),
	}, nil
}

// bind 未绑定时绑定到 target，返回最终绑定的连接
func bind(e Entity, target string) (string, error) {
	if e.BoundConnection() == "" && target != "" {
		e.BindConnection(target)
	}
	conn := e.BoundConnection()
	if conn == "" {
		return "", ErrMissingTarget
	}
	return conn, nil
}

// Save 保存单个实体
//
// 实体未绑定时绑定到 target；已绑定时忽略 target。两者都为空返回 ErrMissingTarget。
// 主键为零值时插入，否则按主键更新，行不存在时插入，重复保存同一实体不会冲突。
func Save[T Entity](ctx context.Context, w *Writer, entity T, target string) error {
	name, err := bind(entity, target)
	if err != nil {
		return err
	}
	conn, err := w.resolver.Conn(name)
	if err != nil {
		return err
	}
	if err := conn.WithContext(ctx).Save(entity).Error; err != nil {
		w.logger.ErrorContext(ctx, "save failed", clog.String("connection", name), clog.Error(err))
		return xerrors.Wrapf(err, "writepath: save on %s", name)
	}
	w.rows.Inc(ctx, metrics.L(metrics.LabelShard, name))
	return nil
}

// BulkInsert 批量插入，使用按连接分组的 GORM 写入器
func BulkInsert[T Entity](ctx context.Context, w *Writer, entities []T, target string) error {
	return BulkInsertWith(ctx, w, NewGormInserter[T](w), entities, target)
}

// BulkInsertWith 批量插入，先为所有未绑定的实体绑定 target，再一次性交给 inserter
//
// 任一实体无法确定连接时在写入前返回 ErrMissingTarget，已完成的绑定保留。
func BulkInsertWith[T Entity](ctx context.Context, w *Writer, inserter BatchInserter[T], entities []T, target string) error {
	if len(entities) == 0 {
		return nil
	}
	for i, e := range entities {
		if _, err := bind(e, target); err != nil {
			return xerrors.Wrapf(err, "element %d", i)
		}
	}
	return inserter.InsertBatch(ctx, entities)
}
