package writepath

import (
	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
)

// DefaultBatchSize 默认每条 INSERT 的行数
const DefaultBatchSize = 100

// Option Writer 选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	batchSize int
}

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithBatchSize 设置批量插入时每条 INSERT 的行数，非正数使用默认值
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard(), batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithNamespace("writepath")
	return o
}
