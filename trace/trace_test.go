package trace

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/testkit"
	"github.com/ceyewan/shardkit/xerrors"
)

func newRecorded(t *testing.T) (Provider, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp, err := New(&Config{Enabled: true, ServiceName: "shardkit-test"},
		WithSpanProcessor(rec), WithoutGlobal(), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, rec
}

func TestNewDisabled(t *testing.T) {
	tp, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, Discard(), tp)

	tp, err = New(&Config{})
	require.NoError(t, err)
	assert.Equal(t, Discard(), tp)
	assert.NoError(t, tp.Shutdown(context.Background()))

	_, span := tp.TracerProvider().Tracer("x").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Enabled: true, Sampler: 1.5})
	assert.ErrorIs(t, err, xerrors.ErrConfiguration)

	_, err = New(&Config{Enabled: true, Sampler: 1, Batcher: "eager"})
	assert.ErrorIs(t, err, xerrors.ErrConfiguration)
}

func TestSpansAreRecorded(t *testing.T) {
	tp, rec := newRecorded(t)

	_, span := tp.TracerProvider().Tracer("shardkit").Start(context.Background(), "assign")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "assign", ended[0].Name())
}

func TestClusterTracing(t *testing.T) {
	tp, rec := newRecorded(t)

	cluster, err := db.Open(context.Background(), &db.Config{
		Sources:   testkit.NewSQLiteSources("shard_a"),
		SilentSQL: true,
		Tracing:   true,
	}, db.WithTracerProvider(tp.TracerProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cluster.Close() })

	conn, err := cluster.DB(context.Background(), "shard_a")
	require.NoError(t, err)
	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	assert.NotEmpty(t, rec.Ended())
}

func TestRedisTracing(t *testing.T) {
	tp, rec := newRecorded(t)
	mr := miniredis.RunT(t)

	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: mr.Addr()},
		connector.WithTracerProvider(tp.TracerProvider()))
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.GetClient().Set(context.Background(), "k", "v", 0).Err())

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "set")
}
