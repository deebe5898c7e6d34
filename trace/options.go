package trace

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ceyewan/shardkit/clog"
)

// Option Provider 选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	processor sdktrace.SpanProcessor
	global    bool
}

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSpanProcessor 使用指定的 SpanProcessor 代替 OTLP 导出
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.processor = sp
	}
}

// WithoutGlobal 不设置全局 TracerProvider 与 Propagator
func WithoutGlobal() Option {
	return func(o *options) {
		o.global = false
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{logger: clog.Discard(), global: true}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithNamespace("trace")
	return o
}
