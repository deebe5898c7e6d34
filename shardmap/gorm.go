package shardmap

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/xerrors"
)

// DefaultTable GormStore 与 DynamoStore 的默认表名
const DefaultTable = "shard_mappings"

// Mapping 映射表的行，shard_key 为主键保证写一次
type Mapping struct {
	ShardKey string `gorm:"column:shard_key;primaryKey;size:120"`
	Shard    string `gorm:"column:shard;size:120;not null"`
}

// GormStore 把映射存放在集群中某个数据库的表里
//
// 映射库可以是一个不属于任何分片组的分片，它对分片解析不可见。
type GormStore struct {
	cluster  db.Cluster
	database string
	table    string
	logger   clog.Logger
}

// NewGormStore 使用 cluster 中名为 database 的连接存放映射
func NewGormStore(cluster db.Cluster, database string, opts ...Option) (*GormStore, error) {
	if cluster == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "cluster is required")
	}
	if _, err := cluster.Conn(database); err != nil {
		return nil, xerrors.Wrapf(err, "shardmap: mapping database %q", database)
	}
	o := applyOptions("gorm", opts...)
	if o.table == "" {
		o.table = DefaultTable
	}
	return &GormStore{
		cluster:  cluster,
		database: database,
		table:    o.table,
		logger:   o.logger.With(clog.String("database", database)),
	}, nil
}

// Migrate 创建映射表
func (s *GormStore) Migrate(ctx context.Context) error {
	conn, err := s.cluster.DB(ctx, s.database)
	if err != nil {
		return err
	}
	if err := conn.Table(s.table).AutoMigrate(&Mapping{}); err != nil {
		return xerrors.Wrapf(err, "shardmap: migrate table %s", s.table)
	}
	return nil
}

func (s *GormStore) Record(ctx context.Context, shardKey, shard string) error {
	if err := validateMapping(shardKey, shard); err != nil {
		return err
	}
	conn, err := s.cluster.DB(ctx, s.database)
	if err != nil {
		return err
	}
	err = conn.Table(s.table).Create(&Mapping{ShardKey: shardKey, Shard: shard}).Error
	if err == nil {
		return nil
	}
	if db.IsDuplicateKey(err) {
		return xerrors.Wrapf(ErrDuplicateKey, "key %q", shardKey)
	}
	s.logger.ErrorContext(ctx, "record mapping failed", clog.String("shard_key", shardKey), clog.Error(err))
	return xerrors.Wrap(err, "shardmap: record mapping")
}

func (s *GormStore) Lookup(ctx context.Context, shardKey string) (string, error) {
	if err := validateKey(shardKey); err != nil {
		return "", err
	}
	conn, err := s.cluster.DB(ctx, s.database)
	if err != nil {
		return "", err
	}
	var m Mapping
	err = conn.Table(s.table).Where("shard_key = ?", shardKey).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", xerrors.Wrapf(ErrNotFound, "key %q", shardKey)
	}
	if err != nil {
		return "", xerrors.Wrap(err, "shardmap: lookup mapping")
	}
	return m.Shard, nil
}
