// Package shardmap 持久化 shard key 到分片的映射，后续查询不需要重新计算分片。
//
// 映射只写一次：同一个 key 第二次 Record 一律返回 ErrDuplicateKey，
// 即使分片相同也不例外，重试方需要通过 Lookup 确认已有映射。
// 读取不会校验分片当前是否仍为主分片，降级的分片继续服务历史映射。
//
// 后端：
//   - GormStore：关系库中的映射表，shard_key 为主键
//   - RedisStore：SETNX
//   - EtcdStore：CreateRevision == 0 的事务
//   - DynamoStore：attribute_not_exists 条件写
//
// 所有后端都不在进程内缓存映射，每次 Lookup 都访问存储。
package shardmap

import (
	"context"
	"unicode/utf8"

	"github.com/ceyewan/shardkit/xerrors"
)

// MaxLength shard key 与分片名的最大长度
const MaxLength = 120

// Store 映射存储
type Store interface {
	// Record 写入映射，key 已存在时返回 ErrDuplicateKey
	Record(ctx context.Context, shardKey, shard string) error

	// Lookup 返回 key 对应的分片，不存在时返回 ErrNotFound
	Lookup(ctx context.Context, shardKey string) (string, error)
}

func validateKey(shardKey string) error {
	if shardKey == "" {
		return xerrors.Wrap(ErrInvalidKey, "empty shard key")
	}
	if utf8.RuneCountInString(shardKey) > MaxLength {
		return xerrors.Wrapf(ErrInvalidKey, "shard key longer than %d characters", MaxLength)
	}
	return nil
}

func validateMapping(shardKey, shard string) error {
	if err := validateKey(shardKey); err != nil {
		return err
	}
	if shard == "" {
		return xerrors.Wrap(ErrInvalidKey, "empty shard")
	}
	if utf8.RuneCountInString(shard) > MaxLength {
		return xerrors.Wrapf(ErrInvalidKey, "shard name longer than %d characters", MaxLength)
	}
	return nil
}
