// Package testkit 提供 shardkit 各组件测试共用的依赖构造函数。
//
// 所有资源的生命周期都交给 t.Cleanup 管理，调用方无需手动关闭。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx      context.Context
	Logger   clog.Logger
	Meter    metrics.Meter
	Registry *prometheus.Registry
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 写入独立的 Registry
func NewKit(t *testing.T) *Kit {
	meter, reg := NewMeter(t)
	return &Kit{
		Ctx:      context.Background(),
		Logger:   NewLogger(),
		Meter:    meter,
		Registry: reg,
	}
}

// NewLogger 返回一个用于测试的 logger，仅输出 warn 以上级别
func NewLogger() clog.Logger {
	cfg := clog.NewDevDefaultConfig()
	cfg.Level = "warn"
	logger, err := clog.New(cfg, clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个启用的 meter 及其 Registry，不启动 HTTP 服务
func NewMeter(t *testing.T) (metrics.Meter, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	cfg := metrics.NewDevDefaultConfig("shardkit-test")
	cfg.Port = 0
	meter, err := metrics.New(cfg, metrics.WithRegistry(reg))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = meter.Shutdown(context.Background())
	})
	return meter, reg
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的 key、库名或表名后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}

// CounterValue 读取 Registry 中名称与标签都匹配的计数器之和
func CounterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		// exporter 会为缺少后缀的计数器补上 _total
		if mf.GetName() != name && mf.GetName() != name+"_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m.GetLabel(), labels) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, p := range pairs {
			if p.GetName() == k && p.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
