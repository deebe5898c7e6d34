package writepath

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/testkit"
	"github.com/ceyewan/shardkit/xerrors"
)

type order struct {
	ID   int64 `gorm:"primaryKey"`
	Item string
	Binding
}

func newCluster(t *testing.T) db.Cluster {
	t.Helper()
	cluster := testkit.NewSQLiteCluster(t, "connX", "connY")
	for _, name := range cluster.Names() {
		conn, err := cluster.Conn(name)
		require.NoError(t, err)
		require.NoError(t, conn.AutoMigrate(&order{}))
	}
	return cluster
}

func items(t *testing.T, cluster db.Cluster, name string) []string {
	t.Helper()
	conn, err := cluster.Conn(name)
	require.NoError(t, err)
	var got []string
	require.NoError(t, conn.Model(&order{}).Order("id").Pluck("item", &got).Error)
	return got
}

func TestSave(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)
	ctx := context.Background()

	o := &order{Item: "book"}
	require.NoError(t, Save(ctx, w, o, "connX"))
	assert.Equal(t, "connX", o.BoundConnection())
	assert.NotZero(t, o.ID)

	// 已绑定的实体忽略新的 target
	again := &order{Item: "pen"}
	again.BindConnection("connY")
	require.NoError(t, Save(ctx, w, again, "connX"))
	assert.Equal(t, "connY", again.BoundConnection())

	assert.Equal(t, []string{"book"}, items(t, cluster, "connX"))
	assert.Equal(t, []string{"pen"}, items(t, cluster, "connY"))
}

func TestSaveUpdatesBoundEntity(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)
	ctx := context.Background()

	o := &order{Item: "book"}
	require.NoError(t, Save(ctx, w, o, "connX"))
	id := o.ID

	// 后续保存落在首次绑定的连接上，按主键更新
	o.Item = "book v2"
	require.NoError(t, Save(ctx, w, o, ""))
	o.Item = "book v3"
	require.NoError(t, Save(ctx, w, o, "connY"))

	assert.Equal(t, id, o.ID)
	assert.Equal(t, "connX", o.BoundConnection())
	assert.Equal(t, []string{"book v3"}, items(t, cluster, "connX"))
	assert.Empty(t, items(t, cluster, "connY"))
}

func TestSaveInsertsPresetPrimaryKey(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)
	ctx := context.Background()

	o := &order{ID: 42, Item: "lamp"}
	require.NoError(t, Save(ctx, w, o, "connY"))
	require.NoError(t, Save(ctx, w, o, "connY"))

	conn, err := cluster.Conn("connY")
	require.NoError(t, err)
	var got order
	require.NoError(t, conn.First(&got, 42).Error)
	assert.Equal(t, "lamp", got.Item)
	assert.Equal(t, []string{"lamp"}, items(t, cluster, "connY"))
}

func TestSaveMissingTarget(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)

	o := &order{Item: "book"}
	err = Save(context.Background(), w, o, "")
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.ErrorIs(t, err, xerrors.ErrMissingTarget)
	assert.Empty(t, items(t, cluster, "connX"))
	assert.Empty(t, items(t, cluster, "connY"))
}

func TestSaveUnknownConnection(t *testing.T) {
	w, err := New(newCluster(t))
	require.NoError(t, err)
	err = Save(context.Background(), w, &order{Item: "book"}, "connZ")
	assert.ErrorIs(t, err, db.ErrUnknownShard)
}

func TestBulkInsertRespectsExistingBinding(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)

	e1 := &order{Item: "e1"}
	e1.BindConnection("connX")
	e2 := &order{Item: "e2"}
	e3 := &order{Item: "e3"}

	require.NoError(t, BulkInsert(context.Background(), w, []*order{e1, e2, e3}, "connY"))

	assert.Equal(t, "connX", e1.BoundConnection())
	assert.Equal(t, "connY", e2.BoundConnection())
	assert.Equal(t, "connY", e3.BoundConnection())
	assert.Equal(t, []string{"e1"}, items(t, cluster, "connX"))
	assert.Equal(t, []string{"e2", "e3"}, items(t, cluster, "connY"))
}

func TestBulkInsertMissingTargetWritesNothing(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)

	e1 := &order{Item: "e1"}
	e1.BindConnection("connX")
	e2 := &order{Item: "e2"}

	err = BulkInsert(context.Background(), w, []*order{e1, e2}, "")
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.Empty(t, items(t, cluster, "connX"))
	assert.Empty(t, items(t, cluster, "connY"))
}

type recordingInserter struct {
	calls [][]*order
}

func (r *recordingInserter) InsertBatch(_ context.Context, entities []*order) error {
	r.calls = append(r.calls, entities)
	return nil
}

func TestBulkInsertSingleInserterCall(t *testing.T) {
	w, err := New(newCluster(t))
	require.NoError(t, err)

	rec := &recordingInserter{}
	batch := []*order{{Item: "a"}, {Item: "b"}, {Item: "c"}}
	batch[1].BindConnection("connX")
	require.NoError(t, BulkInsertWith(context.Background(), w, rec, batch, "connY"))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, batch, rec.calls[0])
	for _, o := range rec.calls[0] {
		assert.NotEmpty(t, o.BoundConnection())
	}

	// 空批次不调用 inserter
	require.NoError(t, BulkInsertWith(context.Background(), w, rec, nil, "connY"))
	assert.Len(t, rec.calls, 1)
}

func TestBulkInsertBatchSize(t *testing.T) {
	cluster := newCluster(t)
	kit := testkit.NewKit(t)
	w, err := New(cluster, WithBatchSize(2), WithMeter(kit.Meter), WithLogger(kit.Logger))
	require.NoError(t, err)
	assert.Equal(t, 2, w.batchSize)

	batch := make([]*order, 5)
	for i := range batch {
		batch[i] = &order{Item: string(rune('a' + i))}
	}
	require.NoError(t, BulkInsert(kit.Ctx, w, batch, "connX"))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items(t, cluster, "connX"))
	assert.Equal(t, 5.0, testkit.CounterValue(t, kit.Registry, MetricRowsWritten, map[string]string{"shard": "connX"}))
}

func TestBulkInsertUnknownConnection(t *testing.T) {
	cluster := newCluster(t)
	w, err := New(cluster)
	require.NoError(t, err)

	err = BulkInsert(context.Background(), w, []*order{{Item: "a"}}, "connZ")
	assert.ErrorIs(t, err, xerrors.ErrInvalidShard)
}

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	w, err := New(newCluster(t), WithBatchSize(0))
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, w.batchSize)
}
