// Package trace 初始化 OpenTelemetry TracerProvider。
//
// 分片集群（otelgorm）与 Redis 连接器（redisotel）通过 TracerProvider 上报 span：
//
//	tp, err := trace.New(&cfg.Trace, trace.WithLogger(logger))
//	defer tp.Shutdown(ctx)
//
//	cluster, err := db.Open(ctx, dbCfg, db.WithTracerProvider(tp.TracerProvider()))
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/xerrors"
)

// Provider 持有 TracerProvider 及其生命周期
type Provider interface {
	TracerProvider() oteltrace.TracerProvider

	// Shutdown 刷新剩余的 span 并关闭导出器
	Shutdown(ctx context.Context) error
}

// New 创建 Provider
//
// cfg 为 nil 或未启用时返回 noop Provider。
// 未通过 WithSpanProcessor 指定处理器时，span 经 OTLP gRPC 导出到 cfg.Endpoint。
func New(cfg *Config, opts ...Option) (Provider, error) {
	if cfg == nil || !cfg.Enabled {
		return Discard(), nil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts...)
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "trace: create resource")
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampler))),
	}

	if o.processor != nil {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(o.processor))
	} else {
		exporterOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTimeout(5 * time.Second),
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		// 连接是惰性建立的，collector 不可用不会让 New 失败
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, xerrors.Wrap(err, "trace: create otlp exporter")
		}
		if cfg.Batcher == "simple" {
			tpOpts = append(tpOpts, sdktrace.WithSyncer(exporter))
		} else {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
		}
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	if o.global {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	o.logger.Info("tracer provider started",
		clog.String("service", cfg.ServiceName),
		clog.String("endpoint", cfg.Endpoint),
		clog.Bool("global", o.global),
	)
	return &provider{tp: tp}, nil
}

type provider struct {
	tp *sdktrace.TracerProvider
}

func (p *provider) TracerProvider() oteltrace.TracerProvider {
	return p.tp
}

func (p *provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

type noopProvider struct{}

// Discard 返回不记录任何 span 的 Provider
func Discard() Provider {
	return noopProvider{}
}

func (noopProvider) TracerProvider() oteltrace.TracerProvider {
	return noop.NewTracerProvider()
}

func (noopProvider) Shutdown(context.Context) error {
	return nil
}
