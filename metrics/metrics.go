// Package metrics 为 shardkit 提供统一的指标收集能力。
// 基于 OpenTelemetry 构建，通过 Prometheus exporter 暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "order-service",
//	    Port:        9090,
//	})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("idgen_ids_generated_total", "生成的 ID 总数")
//	counter.Inc(ctx, metrics.L(metrics.LabelShard, "shard_a"))
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/shardkit/clog"
)

// Counter 计数器，只增不减
type Counter interface {
	Inc(ctx context.Context, labels ...Label)
	Add(ctx context.Context, val float64, labels ...Label)
}

// Histogram 直方图，记录值的分布（如耗时）
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标工厂，创建的指标并发安全
type Meter interface {
	Counter(name string, desc string) (Counter, error)
	Histogram(name string, desc string, unit string) (Histogram, error)

	// Handler 返回 Prometheus 采集的 http.Handler，noop Meter 返回 404
	Handler() http.Handler

	Shutdown(ctx context.Context) error
}

// Option 配置 Meter 实例的选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	registry *prometheus.Registry
}

// WithLogger 注入日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}

// WithRegistry 使用指定的 Prometheus Registry，默认新建独立的 Registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// New 创建 Meter 实例
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, errors.New("metrics: config is required")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	cfg.setDefaults()

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: create resource: %w", err)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(o.registry))
	if err != nil {
		return nil, fmt.Errorf("metrics: create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	m := &meter{
		meter:    provider.Meter("shardkit"),
		provider: provider,
		handler:  promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}),
		logger:   o.logger,
	}

	if cfg.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle(cfg.Path, m.handler)
		m.server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			m.logger.Info("starting prometheus metrics server",
				clog.String("addr", m.server.Addr), clog.String("path", cfg.Path))
			if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error("prometheus server error", clog.Error(err))
			}
		}()
	}

	return m, nil
}

// meter 实现 Meter 接口
type meter struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	server   *http.Server
	logger   clog.Logger
}

func (m *meter) Counter(name string, desc string) (Counter, error) {
	c, err := m.meter.Float64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return nil, err
	}
	return &counter{c: c}, nil
}

func (m *meter) Histogram(name string, desc string, unit string) (Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if unit != "" {
		opts = append(opts, metric.WithUnit(unit))
	}
	h, err := m.meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, err
	}
	return &histogram{h: h}, nil
}

func (m *meter) Handler() http.Handler {
	return m.handler
}

func (m *meter) Shutdown(ctx context.Context) error {
	var serverErr error
	if m.server != nil {
		serverErr = m.server.Shutdown(ctx)
	}
	return errors.Join(serverErr, m.provider.Shutdown(ctx))
}

type counter struct {
	c metric.Float64Counter
}

func (c *counter) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (c *counter) Add(ctx context.Context, val float64, labels ...Label) {
	c.c.Add(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

type histogram struct {
	h metric.Float64Histogram
}

func (h *histogram) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

// MustCounter 创建计数器，失败时退化为 noop 计数器
//
// 组件在构造阶段使用，指标创建失败不应阻断业务。
func MustCounter(m Meter, name, desc string) Counter {
	if m == nil {
		return noopCounter{}
	}
	c, err := m.Counter(name, desc)
	if err != nil {
		return noopCounter{}
	}
	return c
}

// MustHistogram 创建直方图，失败时退化为 noop 直方图
func MustHistogram(m Meter, name, desc, unit string) Histogram {
	if m == nil {
		return noopHistogram{}
	}
	h, err := m.Histogram(name, desc, unit)
	if err != nil {
		return noopHistogram{}
	}
	return h
}
