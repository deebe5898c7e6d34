// Package topology 根据声明式的分片配置计算每个分片组可接收新实体的主分片集合。
//
// 一个分片是某个分片组的主分片候选，当且仅当它没有 primary 反向引用（不是副本）
// 并且声明了 shard_group。结果按名称字典序排列，跨进程稳定：
//
//	topo, err := topology.FromConfig(map[string]topology.ShardSpec{
//		"A": {ShardGroup: "g"},
//		"B": {Primary: "A", ShardGroup: "g"},
//		"C": {ShardGroup: "g"},
//	})
//	topo.PrimaryShardsFor("g") // [A C]
//
// Topology 构造后只读，可在多个 goroutine 间无锁共享。
package topology

import (
	"slices"
	"sort"

	"github.com/ceyewan/shardkit/xerrors"
)

// ShardConfig 单个分片的拓扑属性
type ShardConfig struct {
	Name       string
	Primary    string // 副本指向的主分片名称，主分片为空
	ShardGroup string // 分片组标签，为空表示未分组
}

// IsPrimary 是否为主分片
func (s ShardConfig) IsPrimary() bool {
	return s.Primary == ""
}

// ShardSpec 配置文件中单个分片的拓扑字段
type ShardSpec struct {
	Primary    string `mapstructure:"primary" yaml:"primary" json:"primary,omitempty"`
	ShardGroup string `mapstructure:"shard_group" yaml:"shard_group" json:"shard_group,omitempty"`
}

// Topology 不可变的分片拓扑
type Topology struct {
	shards []ShardConfig
	byName map[string]int
	policy UngroupedPolicy
}

// New 校验并创建拓扑
//
// 名称必须非空且唯一，primary 必须引用已配置的分片。
func New(shards []ShardConfig, opts ...Option) (*Topology, error) {
	o := options{policy: UngroupedInvisible}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Topology{
		shards: slices.Clone(shards),
		byName: make(map[string]int, len(shards)),
		policy: o.policy,
	}
	for i, s := range t.shards {
		if s.Name == "" {
			return nil, xerrors.Wrapf(xerrors.ErrConfiguration, "topology: shard #%d has empty name", i)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, xerrors.Wrapf(xerrors.ErrConfiguration, "topology: duplicate shard %q", s.Name)
		}
		t.byName[s.Name] = i
	}
	for _, s := range t.shards {
		if s.Primary == "" {
			continue
		}
		if s.Primary == s.Name {
			return nil, xerrors.Wrapf(xerrors.ErrConfiguration, "topology: shard %q is its own primary", s.Name)
		}
		if _, ok := t.byName[s.Primary]; !ok {
			return nil, xerrors.Wrapf(xerrors.ErrConfiguration,
				"topology: shard %q references unknown primary %q", s.Name, s.Primary)
		}
	}
	return t, nil
}

// FromConfig 从 shard 名称到属性的映射创建拓扑
func FromConfig(specs map[string]ShardSpec, opts ...Option) (*Topology, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	shards := make([]ShardConfig, 0, len(names))
	for _, name := range names {
		spec := specs[name]
		shards = append(shards, ShardConfig{
			Name:       name,
			Primary:    spec.Primary,
			ShardGroup: spec.ShardGroup,
		})
	}
	return New(shards, opts...)
}

// PrimaryShardsFor 返回分片组内按字典序排列的主分片名称
//
// 每次调用都会重新扫描配置并返回新切片，调用方可以自由修改。
// 空分片组的含义取决于 UngroupedPolicy。
func (t *Topology) PrimaryShardsFor(group string) []string {
	if group == "" && t.policy == UngroupedInvisible {
		return []string{}
	}
	names := make([]string, 0)
	for _, s := range t.shards {
		if s.ShardGroup == group && s.IsPrimary() {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// RequirePrimaryShards 与 PrimaryShardsFor 相同，结果为空时返回配置错误
func (t *Topology) RequirePrimaryShards(group string) ([]string, error) {
	names := t.PrimaryShardsFor(group)
	if len(names) == 0 {
		return nil, xerrors.Wrapf(xerrors.ErrConfiguration, "topology: no primary shards for group %q", group)
	}
	return names, nil
}

// IsValidChoice 判断 shard 当前是否是 group 的主分片
func (t *Topology) IsValidChoice(group, shard string) bool {
	return slices.Contains(t.PrimaryShardsFor(group), shard)
}

// Groups 返回所有非空分片组，按字典序排列
func (t *Topology) Groups() []string {
	seen := make(map[string]struct{})
	for _, s := range t.shards {
		if s.ShardGroup != "" {
			seen[s.ShardGroup] = struct{}{}
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Shard 按名称查找分片
func (t *Topology) Shard(name string) (ShardConfig, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ShardConfig{}, false
	}
	return t.shards[i], true
}

// Shards 返回所有分片的副本，按配置顺序
func (t *Topology) Shards() []ShardConfig {
	return slices.Clone(t.shards)
}
