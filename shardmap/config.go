package shardmap

import (
	"context"
	"slices"

	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/xerrors"
)

// 支持的后端
const (
	BackendGorm     = "gorm"
	BackendRedis    = "redis"
	BackendEtcd     = "etcd"
	BackendDynamoDB = "dynamodb"
)

// Config 映射存储配置
type Config struct {
	// Backend 默认 gorm
	Backend string `mapstructure:"backend"`
	// Database gorm 后端使用的集群连接名
	Database string `mapstructure:"database"`
	// Table gorm 后端的表名
	Table     string       `mapstructure:"table"`
	KeyPrefix string       `mapstructure:"key_prefix"`
	Dynamo    DynamoConfig `mapstructure:"dynamodb"`
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendGorm
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendGorm:
		if c.Database == "" {
			return xerrors.Wrap(ErrInvalidConfig, "gorm backend requires database")
		}
	case BackendRedis, BackendEtcd, BackendDynamoDB:
	default:
		return xerrors.Wrapf(ErrInvalidConfig, "unknown backend %q", c.Backend)
	}
	return nil
}

// Deps 各后端依赖的连接，只需提供所选后端对应的一项
type Deps struct {
	Cluster db.Cluster
	Redis   connector.RedisConnector
	Etcd    connector.EtcdConnector
	// Dynamo 为空时按 cfg.Dynamo 创建客户端
	Dynamo DynamoAPI
}

// Migrator 需要建表的存储实现该接口
type Migrator interface {
	Migrate(ctx context.Context) error
}

// New 按 cfg.Backend 创建映射存储
func New(ctx context.Context, cfg *Config, deps Deps, opts ...Option) (Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		return asStore(NewRedisStore(deps.Redis, append(slices.Clone(opts), WithKeyPrefix(cfg.KeyPrefix))...))
	case BackendEtcd:
		return asStore(NewEtcdStore(deps.Etcd, append(slices.Clone(opts), WithKeyPrefix(cfg.KeyPrefix))...))
	case BackendDynamoDB:
		client := deps.Dynamo
		if client == nil {
			c, err := NewDynamoClient(ctx, cfg.Dynamo)
			if err != nil {
				return nil, err
			}
			client = c
		}
		return asStore(NewDynamoStore(client, append(slices.Clone(opts), WithTable(cfg.Dynamo.Table))...))
	default:
		return asStore(NewGormStore(deps.Cluster, cfg.Database, append(slices.Clone(opts), WithTable(cfg.Table))...))
	}
}

// asStore 避免把 nil 指针包装成非 nil 的接口
func asStore[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
