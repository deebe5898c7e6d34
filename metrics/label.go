package metrics

import "go.opentelemetry.io/otel/attribute"

// 分片核心常用的标签
const (
	LabelShard     = "shard"
	LabelGroup     = "group"
	LabelNamespace = "namespace"
	LabelBackend   = "backend"
	LabelOutcome   = "outcome"
)

// 常见的结果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeMiss    = "miss"
)

// Label 指标标签，避免使用 shard key 等高基数的值
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		attrs[i] = attribute.String(l.Key, l.Value)
	}
	return attrs
}
