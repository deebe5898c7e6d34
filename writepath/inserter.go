package writepath

import (
	"context"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/xerrors"
)

// BatchInserter 把一批已绑定连接的实体写入存储
type BatchInserter[T Entity] interface {
	InsertBatch(ctx context.Context, entities []T) error
}

// GormInserter 按绑定的连接分组，每组执行 CreateInBatches
//
// 分组顺序为各连接首次出现的顺序，组内保持输入顺序。
// 不同连接之间没有原子性，某一组失败时之前的组已经写入。
type GormInserter[T Entity] struct {
	w *Writer
}

func NewGormInserter[T Entity](w *Writer) *GormInserter[T] {
	return &GormInserter[T]{w: w}
}

type group[T Entity] struct {
	conn     string
	entities []T
}

func (g *GormInserter[T]) InsertBatch(ctx context.Context, entities []T) error {
	var groups []*group[T]
	index := make(map[string]*group[T])
	for _, e := range entities {
		name := e.BoundConnection()
		if name == "" {
			return ErrMissingTarget
		}
		grp, ok := index[name]
		if !ok {
			grp = &group[T]{conn: name}
			index[name] = grp
			groups = append(groups, grp)
		}
		grp.entities = append(grp.entities, e)
	}

	for _, grp := range groups {
		conn, err := g.w.resolver.Conn(grp.conn)
		if err != nil {
			return err
		}
		if err := conn.WithContext(ctx).CreateInBatches(grp.entities, g.w.batchSize).Error; err != nil {
			g.w.logger.ErrorContext(ctx, "bulk insert failed",
				clog.String("connection", grp.conn), clog.Int("rows", len(grp.entities)), clog.Error(err))
			return xerrors.Wrapf(err, "writepath: bulk insert on %s", grp.conn)
		}
		g.w.rows.Add(ctx, float64(len(grp.entities)), metrics.L(metrics.LabelShard, grp.conn))
	}
	return nil
}
