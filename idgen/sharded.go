package idgen

import (
	"strconv"
	"strings"

	"github.com/ceyewan/shardkit/xerrors"
)

// ShardedID 分片名与分片内序号的组合，跨分片唯一
type ShardedID struct {
	Shard string
	Seq   int64
}

// String 返回 "shard:seq" 形式
func (id ShardedID) String() string {
	return id.Shard + ":" + strconv.FormatInt(id.Seq, 10)
}

// ParseShardedID 解析 "shard:seq"，分片名中允许出现冒号，以最后一个冒号分隔
func ParseShardedID(s string) (ShardedID, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return ShardedID{}, xerrors.Wrapf(ErrInvalidShardedID, "%q", s)
	}
	seq, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || seq <= 0 {
		return ShardedID{}, xerrors.Wrapf(ErrInvalidShardedID, "%q", s)
	}
	return ShardedID{Shard: s[:i], Seq: seq}, nil
}
