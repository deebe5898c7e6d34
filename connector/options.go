package connector

import (
	"go.opentelemetry.io/otel/trace"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	gormLogger gormlogger.Interface
	tracing    bool
	tracerProv trace.TracerProvider
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithGormLogger 替换 GORM 的 SQL 日志实现，默认静默
func WithGormLogger(l gormlogger.Interface) Option {
	return func(o *options) {
		o.gormLogger = l
	}
}

// WithTracing 为 Redis 客户端挂载 OpenTelemetry 插桩
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}

// WithTracerProvider 开启 Redis 插桩并使用指定的 TracerProvider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracing = true
		o.tracerProv = tp
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.gormLogger == nil {
		o.gormLogger = gormlogger.Discard
	}
	return o
}
