// Package assign 为分片实体选择分片。
//
// 实体首次保存前调用 Assign：已经有分片的实体保持不变，
// 否则从实体分片组的主分片中选择一个写入实体。
//
//	type User struct {
//	    ID int64
//	    assign.ShardField
//	}
//
//	func (User) ShardGroup() string { return "users" }
//
//	a, _ := assign.New(topo, assign.NewRoundRobin())
//	shard, err := a.Assign(ctx, &user)
package assign

import (
	"context"
	"slices"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/topology"
	"github.com/ceyewan/shardkit/xerrors"
)

// MetricAssignments 分配次数，不含已有分片的实体
const MetricAssignments = "assign_assignments_total"

// Entity 按分片组存储的实体
type Entity interface {
	ShardGroup() string
	GetShard() string
	SetShard(shard string)
}

// ShardField 可嵌入的分片字段，实现 Entity 的 GetShard 与 SetShard
type ShardField struct {
	Shard string `gorm:"column:shard;size:120;index" json:"shard"`
}

func (f *ShardField) GetShard() string {
	return f.Shard
}

func (f *ShardField) SetShard(shard string) {
	f.Shard = shard
}

// Assigner 为实体分配分片，可并发使用
type Assigner struct {
	topo     *topology.Topology
	selector Selector
	logger   clog.Logger
	counter  metrics.Counter
}

// New 创建 Assigner，selector 为 nil 时使用轮询
func New(topo *topology.Topology, selector Selector, opts ...Option) (*Assigner, error) {
	if topo == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "topology is required")
	}
	if selector == nil {
		selector = NewRoundRobin()
	}
	o := applyOptions(opts...)
	return &Assigner{
		topo:     topo,
		selector: selector,
		logger:   o.logger,
		counter:  metrics.MustCounter(o.meter, MetricAssignments, "分片分配次数"),
	}, nil
}

// Assign 返回实体的分片，必要时先选择并写入实体
//
// 实体已有分片时直接返回，不校验该分片当前是否仍为主分片。
func (a *Assigner) Assign(ctx context.Context, e Entity) (string, error) {
	if e == nil {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, "assign: nil entity")
	}
	if shard := e.GetShard(); shard != "" {
		return shard, nil
	}

	group := e.ShardGroup()
	candidates, err := a.topo.RequirePrimaryShards(group)
	if err != nil {
		return "", xerrors.Wrapf(ErrNoCandidates, "group %q: %v", group, err)
	}

	choice, err := a.selector.Select(e, candidates)
	if err != nil {
		return "", xerrors.Wrapf(err, "assign: select shard for group %q", group)
	}
	if !slices.Contains(candidates, choice) {
		a.logger.ErrorContext(ctx, "selector returned shard outside candidates",
			clog.String("group", group), clog.String("shard", choice), clog.Strings("candidates", candidates))
		return "", xerrors.Wrapf(ErrInvalidShard, "shard %q in group %q", choice, group)
	}

	e.SetShard(choice)
	a.counter.Inc(ctx, metrics.L(metrics.LabelGroup, group), metrics.L(metrics.LabelShard, choice))
	a.logger.DebugContext(ctx, "shard assigned", clog.String("group", group), clog.String("shard", choice))
	return choice, nil
}
