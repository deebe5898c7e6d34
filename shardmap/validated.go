package shardmap

import (
	"context"

	"github.com/ceyewan/shardkit/topology"
	"github.com/ceyewan/shardkit/xerrors"
)

// Validated 包装 store，Record 前校验分片是 group 当前的主分片
//
// Lookup 不做校验，已记录的映射在分片降级后仍然可读。
func Validated(store Store, topo *topology.Topology, group string) Store {
	return &validatedStore{Store: store, topo: topo, group: group}
}

type validatedStore struct {
	Store
	topo  *topology.Topology
	group string
}

func (s *validatedStore) Record(ctx context.Context, shardKey, shard string) error {
	if !s.topo.IsValidChoice(s.group, shard) {
		return xerrors.Wrapf(ErrInvalidShard, "shard %q in group %q", shard, s.group)
	}
	return s.Store.Record(ctx, shardKey, shard)
}
