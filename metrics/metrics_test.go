package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg *prometheus.Registry, prefix string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), prefix) {
			return mf
		}
	}
	return nil
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, Discard(), m)

	m, err = New(NewDevDefaultConfig("test"))
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestCounterExported(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(NewDevDefaultConfig("test"), WithRegistry(reg))
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	c, err := m.Counter("shardkit_test_events", "测试计数器")
	require.NoError(t, err)

	ctx := context.Background()
	c.Inc(ctx, L(LabelShard, "shard_a"))
	c.Add(ctx, 2, L(LabelShard, "shard_a"))
	c.Inc(ctx, L(LabelShard, "shard_b"))

	mf := findFamily(t, reg, "shardkit_test_events")
	require.NotNil(t, mf)

	values := map[string]float64{}
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == LabelShard {
				values[lp.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, values["shard_a"])
	assert.Equal(t, 1.0, values["shard_b"])
}

func TestHistogramAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(NewDevDefaultConfig("test"), WithRegistry(reg))
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	h, err := m.Histogram("shardkit_test_latency", "测试直方图", "s")
	require.NoError(t, err)
	h.Record(context.Background(), 0.05, L(LabelBackend, "gorm"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shardkit_test_latency")
}

func TestMustHelpersFallBackToNoop(t *testing.T) {
	c := MustCounter(nil, "x", "y")
	c.Inc(context.Background())
	h := MustHistogram(Discard(), "x", "y", "")
	h.Record(context.Background(), 1)

	rec := httptest.NewRecorder()
	Discard().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
