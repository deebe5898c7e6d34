package shardmap

import (
	"context"
	"errors"

	"github.com/ceyewan/shardkit/metrics"
)

const (
	MetricRecords = "shardmap_records_total"
	MetricLookups = "shardmap_lookups_total"
)

// Instrumented 包装 store，按后端与结果统计 Record 与 Lookup
//
// Record 冲突与 Lookup 未命中记为 miss。
func Instrumented(store Store, meter metrics.Meter, backend string) Store {
	return &instrumentedStore{
		store:   store,
		backend: backend,
		records: metrics.MustCounter(meter, MetricRecords, "写入映射次数"),
		lookups: metrics.MustCounter(meter, MetricLookups, "查询映射次数"),
	}
}

type instrumentedStore struct {
	store   Store
	backend string
	records metrics.Counter
	lookups metrics.Counter
}

func (s *instrumentedStore) Record(ctx context.Context, shardKey, shard string) error {
	err := s.store.Record(ctx, shardKey, shard)
	s.records.Inc(ctx,
		metrics.L(metrics.LabelBackend, s.backend),
		metrics.L(metrics.LabelOutcome, outcome(err, ErrDuplicateKey)),
	)
	return err
}

func (s *instrumentedStore) Lookup(ctx context.Context, shardKey string) (string, error) {
	shard, err := s.store.Lookup(ctx, shardKey)
	s.lookups.Inc(ctx,
		metrics.L(metrics.LabelBackend, s.backend),
		metrics.L(metrics.LabelOutcome, outcome(err, ErrNotFound)),
	)
	return shard, err
}

func outcome(err, miss error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, miss):
		return metrics.OutcomeMiss
	default:
		return metrics.OutcomeError
	}
}
