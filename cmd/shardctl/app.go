package main

import (
	"context"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/config"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/idgen"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/shardmap"
	"github.com/ceyewan/shardkit/topology"
	"github.com/ceyewan/shardkit/trace"
	"github.com/ceyewan/shardkit/xerrors"
)

// app 一次命令执行所需的组件，按配置装配
type app struct {
	cfg     *config.AppConfig
	logger  clog.Logger
	meter   metrics.Meter
	tracer  trace.Provider
	topo    *topology.Topology
	cluster db.Cluster
	redis   connector.RedisConnector
	etcd    connector.EtcdConnector
	ids     idgen.Strategy
	// store 未配置映射存储时为空
	store    shardmap.Store
	migrator shardmap.Migrator

	closers []func() error
}

// openApp 加载配置并连接配置中出现的所有后端
func openApp(ctx context.Context, configFile string) (_ *app, err error) {
	cfg, _, err := config.LoadApp(ctx, &config.Config{File: configFile})
	if err != nil {
		return nil, err
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	logger, err := clog.New(&cfg.Log, clog.WithNamespace("shardctl"))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.meter, err = metrics.New(&cfg.Metrics, metrics.WithLogger(logger)); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return a.meter.Shutdown(context.Background()) })

	if a.tracer, err = trace.New(&cfg.Trace, trace.WithLogger(logger)); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return a.tracer.Shutdown(context.Background()) })

	connOpts := []connector.Option{connector.WithLogger(logger), connector.WithMeter(a.meter)}
	dbOpts := []db.Option{db.WithLogger(logger), db.WithMeter(a.meter)}
	if cfg.Trace.Enabled {
		connOpts = append(connOpts, connector.WithTracerProvider(a.tracer.TracerProvider()))
		dbOpts = append(dbOpts, db.WithTracerProvider(a.tracer.TracerProvider()))
	}

	if a.topo, err = cfg.Topology(); err != nil {
		return nil, err
	}

	if a.cluster, err = db.Open(ctx, cfg.DBConfig(), dbOpts...); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.cluster.Close)

	if cfg.Redis != nil {
		if a.redis, err = connector.NewRedis(cfg.Redis, connOpts...); err != nil {
			return nil, err
		}
		if err = a.redis.Connect(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.redis.Close)
	}
	if cfg.Etcd != nil {
		if a.etcd, err = connector.NewEtcd(cfg.Etcd, connOpts...); err != nil {
			return nil, err
		}
		if err = a.etcd.Connect(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.etcd.Close)
	}

	if a.ids, err = idgen.New(&cfg.IDGen, a.cluster, a.redis, idgen.WithLogger(logger), idgen.WithMeter(a.meter)); err != nil {
		return nil, err
	}

	if cfg.Mapping.Backend == "" && cfg.Mapping.Database == "" {
		return a, nil
	}
	store, err := shardmap.New(ctx, &cfg.Mapping, shardmap.Deps{
		Cluster: a.cluster,
		Redis:   a.redis,
		Etcd:    a.etcd,
	}, shardmap.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.store = shardmap.Instrumented(store, a.meter, cfg.Mapping.Backend)
	a.migrator, _ = store.(shardmap.Migrator)
	return a, nil
}

// Close 逆序释放资源
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return xerrors.Combine(errs...)
}
