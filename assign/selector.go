package assign

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/ceyewan/shardkit/xerrors"
)

// 选择器名称，用于配置
const (
	SelectorRoundRobin = "round_robin"
	SelectorRandom     = "random"
	SelectorHash       = "hash"
)

// Selector 从候选分片中选择一个
//
// candidates 非空且按字典序排列，返回值必须是其中之一。
type Selector interface {
	Select(e Entity, candidates []string) (string, error)
}

// SelectorFunc 函数适配器
type SelectorFunc func(e Entity, candidates []string) (string, error)

func (f SelectorFunc) Select(e Entity, candidates []string) (string, error) {
	return f(e, candidates)
}

// RoundRobin 按调用顺序轮流选择
type RoundRobin struct {
	next atomic.Uint64
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Select(_ Entity, candidates []string) (string, error) {
	n := r.next.Add(1) - 1
	return candidates[n%uint64(len(candidates))], nil
}

// Random 均匀随机选择
type Random struct{}

func NewRandom() Random {
	return Random{}
}

func (Random) Select(_ Entity, candidates []string) (string, error) {
	return candidates[rand.IntN(len(candidates))], nil
}

// KeyFunc 从实体中取哈希键
type KeyFunc func(e Entity) string

// Hash 对 KeyFunc 的结果做 murmur3 哈希取模，候选集合不变时同一个键总落在同一分片
type Hash struct {
	key KeyFunc
}

func NewHash(key KeyFunc) *Hash {
	return &Hash{key: key}
}

func (h *Hash) Select(e Entity, candidates []string) (string, error) {
	if h.key == nil {
		return "", xerrors.Wrap(ErrInvalidConfig, "hash selector requires a key func")
	}
	k := h.key(e)
	if k == "" {
		return "", xerrors.Wrap(xerrors.ErrInvalidInput, "assign: empty hash key")
	}
	return candidates[HashIndex(k, len(candidates))], nil
}

// HashIndex 返回 key 在 n 个候选中的位置
func HashIndex(key string, n int) int {
	return int(murmur3.Sum64([]byte(key)) % uint64(n))
}

// NewSelector 按名称创建选择器，hash 需要 key
func NewSelector(name string, key KeyFunc) (Selector, error) {
	switch name {
	case "", SelectorRoundRobin:
		return NewRoundRobin(), nil
	case SelectorRandom:
		return NewRandom(), nil
	case SelectorHash:
		if key == nil {
			return nil, xerrors.Wrap(ErrInvalidConfig, "hash selector requires a key func")
		}
		return NewHash(key), nil
	default:
		return nil, xerrors.Wrapf(ErrInvalidConfig, "unknown selector %q", name)
	}
}
