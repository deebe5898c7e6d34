package idgen

import (
	"context"

	"github.com/ceyewan/shardkit/metrics"
)

const (
	MetricIDsGenerated      = "idgen_ids_generated_total"
	MetricContentionRetries = "idgen_contention_retries_total"
)

type instruments struct {
	generated metrics.Counter
	retries   metrics.Counter
}

func newInstruments(m metrics.Meter) instruments {
	return instruments{
		generated: metrics.MustCounter(m, MetricIDsGenerated, "生成的 ID 总数"),
		retries:   metrics.MustCounter(m, MetricContentionRetries, "计数表冲突导致的重试次数"),
	}
}

func (i instruments) recordGenerated(ctx context.Context, backend, shard, namespace string) {
	i.generated.Inc(ctx,
		metrics.L(metrics.LabelBackend, backend),
		metrics.L(metrics.LabelShard, shard),
		metrics.L(metrics.LabelNamespace, namespace),
	)
}
