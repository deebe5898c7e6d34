package assign

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shardkit/testkit"
	"github.com/ceyewan/shardkit/topology"
	"github.com/ceyewan/shardkit/xerrors"
)

type user struct {
	ID    int64
	Email string
	ShardField
}

func (user) ShardGroup() string { return "users" }

type orphan struct {
	ShardField
}

func (orphan) ShardGroup() string { return "nobody" }

func newTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.New([]topology.ShardConfig{
		{Name: "A", ShardGroup: "users"},
		{Name: "B", Primary: "A", ShardGroup: "users"},
		{Name: "C", ShardGroup: "users"},
		{Name: "default"},
	})
	require.NoError(t, err)
	return topo
}

func TestAssignChoosesPrimary(t *testing.T) {
	a, err := New(newTopology(t), nil)
	require.NoError(t, err)

	seen := map[string]int{}
	for i := 0; i < 10; i++ {
		u := &user{}
		shard, err := a.Assign(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, shard, u.Shard)
		seen[shard]++
	}
	assert.Equal(t, map[string]int{"A": 5, "C": 5}, seen)
}

func TestAssignKeepsExistingShard(t *testing.T) {
	called := false
	selector := SelectorFunc(func(Entity, []string) (string, error) {
		called = true
		return "A", nil
	})
	a, err := New(newTopology(t), selector)
	require.NoError(t, err)

	// 已有分片即使是副本也保持不变
	u := &user{ShardField: ShardField{Shard: "B"}}
	shard, err := a.Assign(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "B", shard)
	assert.False(t, called)
}

func TestAssignNoCandidates(t *testing.T) {
	a, err := New(newTopology(t), nil)
	require.NoError(t, err)

	o := &orphan{}
	_, err = a.Assign(context.Background(), o)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.ErrorIs(t, err, xerrors.ErrConfiguration)
	assert.Empty(t, o.Shard)
}

func TestAssignRejectsOutOfSetChoice(t *testing.T) {
	for _, bad := range []string{"B", "default", "Z"} {
		selector := SelectorFunc(func(Entity, []string) (string, error) { return bad, nil })
		a, err := New(newTopology(t), selector)
		require.NoError(t, err)

		u := &user{}
		_, err = a.Assign(context.Background(), u)
		assert.ErrorIs(t, err, ErrInvalidShard, bad)
		assert.ErrorIs(t, err, xerrors.ErrInvalidShard, bad)
		assert.Empty(t, u.Shard, bad)
	}
}

func TestAssignSelectorError(t *testing.T) {
	boom := xerrors.New("boom")
	a, err := New(newTopology(t), SelectorFunc(func(Entity, []string) (string, error) { return "", boom }))
	require.NoError(t, err)
	_, err = a.Assign(context.Background(), &user{})
	assert.ErrorIs(t, err, boom)
}

func TestAssignCandidatesAreSorted(t *testing.T) {
	var got []string
	selector := SelectorFunc(func(_ Entity, c []string) (string, error) {
		got = append([]string(nil), c...)
		return c[0], nil
	})
	a, err := New(newTopology(t), selector)
	require.NoError(t, err)
	_, err = a.Assign(context.Background(), &user{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, got)
}

func TestAssignMetrics(t *testing.T) {
	kit := testkit.NewKit(t)
	a, err := New(newTopology(t), nil, WithLogger(kit.Logger), WithMeter(kit.Meter))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := a.Assign(kit.Ctx, &user{})
		require.NoError(t, err)
	}
	_, err = a.Assign(kit.Ctx, &user{ShardField: ShardField{Shard: "A"}})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testkit.CounterValue(t, kit.Registry, MetricAssignments, map[string]string{"group": "users", "shard": "A"}))
	assert.Equal(t, 2.0, testkit.CounterValue(t, kit.Registry, MetricAssignments, map[string]string{"group": "users", "shard": "C"}))
}

func TestAssignConcurrent(t *testing.T) {
	a, err := New(newTopology(t), NewRoundRobin())
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shard, err := a.Assign(context.Background(), &user{})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[shard]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, map[string]int{"A": 50, "C": 50}, seen)
}

func TestNewRequiresTopology(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
