// Package pipeline 把分片分配、ID 生成、显式写入与映射记录串成一次创建。
//
// Create 的步骤：
//  1. assign：为实体选择分片（已有分片时保持不变）
//  2. idgen：实体实现 IDAssignable 且 ID 为零时，在该分片上生成 ID
//  3. writepath：写入该分片
//  4. shardmap：实体实现 Keyed 时记录 shard key 到分片的映射
//
// 各步骤之间没有事务，失败时已完成的步骤不会回滚。
package pipeline

import (
	"context"
	"errors"

	"github.com/ceyewan/shardkit/assign"
	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/idgen"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/shardmap"
	"github.com/ceyewan/shardkit/writepath"
	"github.com/ceyewan/shardkit/xerrors"
)

// MetricCreates 创建次数
const MetricCreates = "pipeline_creates_total"

// Entity 可以经过流水线创建的实体
type Entity interface {
	assign.Entity
	writepath.Entity
}

// IDAssignable 需要按分片生成 ID 的实体
type IDAssignable interface {
	// IDNamespace 计数命名空间，同时是计数表名
	IDNamespace() string
	GetID() int64
	SetID(id int64)
}

// Keyed 需要记录映射的实体
type Keyed interface {
	ShardKey() string
}

// Deps 流水线依赖，IDs 与 Mappings 只在实体需要时使用
type Deps struct {
	Assigner *assign.Assigner
	Writer   *writepath.Writer
	IDs      idgen.Strategy
	Mappings shardmap.Store
}

// Pipeline 创建流水线，可并发使用
type Pipeline struct {
	deps    Deps
	logger  clog.Logger
	creates metrics.Counter
}

// New 创建流水线，Assigner 与 Writer 必须提供
func New(deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.Assigner == nil || deps.Writer == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "assigner and writer are required")
	}
	o := applyOptions(opts...)
	return &Pipeline{
		deps:    deps,
		logger:  o.logger,
		creates: metrics.MustCounter(o.meter, MetricCreates, "经流水线创建的实体数"),
	}, nil
}

// Create 分配分片并持久化实体，返回实体所在分片
//
// 对同一实体重试是安全的：已持久化的实体按主键更新，
// 映射已存在且指向同一分片时视为成功，指向其他分片时返回 ErrDuplicateKey。
// 实体已绑定到分配分片以外的连接时返回 ErrShardMismatch，不做任何写入。
func (p *Pipeline) Create(ctx context.Context, entity Entity) (string, error) {
	if entity == nil {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, "pipeline: nil entity")
	}
	shard, err := p.create(ctx, entity)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	p.creates.Inc(ctx, metrics.L(metrics.LabelGroup, entity.ShardGroup()), metrics.L(metrics.LabelOutcome, outcome))
	return shard, err
}

func (p *Pipeline) create(ctx context.Context, entity Entity) (string, error) {
	shard, err := p.deps.Assigner.Assign(ctx, entity)
	if err != nil {
		return "", err
	}
	logger := p.logger.With(clog.String("group", entity.ShardGroup()), clog.String("shard", shard))

	// 写入必须落在分配的分片上，否则数据与映射不一致
	if bound := entity.BoundConnection(); bound != "" && bound != shard {
		return "", xerrors.Wrapf(ErrShardMismatch, "bound to %q, assigned %q", bound, shard)
	}

	if ida, ok := entity.(IDAssignable); ok && ida.GetID() == 0 {
		if p.deps.IDs == nil {
			return "", xerrors.Wrap(ErrInvalidConfig, "entity needs an id but no id strategy is configured")
		}
		id, err := p.deps.IDs.NextID(ctx, shard, ida.IDNamespace())
		if err != nil {
			return "", err
		}
		ida.SetID(id)
	}

	if err := writepath.Save(ctx, p.deps.Writer, entity, shard); err != nil {
		return "", err
	}

	if k, ok := entity.(Keyed); ok {
		if err := p.record(ctx, k.ShardKey(), shard); err != nil {
			logger.WarnContext(ctx, "entity saved but mapping not recorded", clog.Error(err))
			return "", err
		}
	}

	logger.DebugContext(ctx, "entity created")
	return shard, nil
}

// record 写入映射，已有映射指向同一分片时视为成功
func (p *Pipeline) record(ctx context.Context, key, shard string) error {
	if p.deps.Mappings == nil {
		return xerrors.Wrap(ErrInvalidConfig, "entity has a shard key but no mapping store is configured")
	}
	err := p.deps.Mappings.Record(ctx, key, shard)
	if !errors.Is(err, shardmap.ErrDuplicateKey) {
		return err
	}
	existing, lerr := p.deps.Mappings.Lookup(ctx, key)
	if lerr != nil {
		return xerrors.Combine(err, lerr)
	}
	if existing != shard {
		return xerrors.Wrapf(shardmap.ErrDuplicateKey, "key %q already mapped to %q, not %q", key, existing, shard)
	}
	return nil
}

// Resolve 返回 shard key 记录的分片
func (p *Pipeline) Resolve(ctx context.Context, shardKey string) (string, error) {
	if p.deps.Mappings == nil {
		return "", xerrors.Wrap(ErrInvalidConfig, "no mapping store is configured")
	}
	return p.deps.Mappings.Lookup(ctx, shardKey)
}
