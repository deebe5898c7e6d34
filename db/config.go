package db

import (
	"time"

	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/xerrors"
)

// 支持的驱动
const (
	DriverMySQL      = "mysql"
	DriverPostgreSQL = "postgres"
	DriverSQLite     = "sqlite"
)

// Source 单个分片的数据库连接信息，按 Driver 选择对应的配置段
type Source struct {
	Driver     string                      `mapstructure:"driver" yaml:"driver"`
	MySQL      *connector.MySQLConfig      `mapstructure:"mysql" yaml:"mysql"`
	PostgreSQL *connector.PostgreSQLConfig `mapstructure:"postgresql" yaml:"postgresql"`
	SQLite     *connector.SQLiteConfig     `mapstructure:"sqlite" yaml:"sqlite"`
}

// Config 分片集群配置
type Config struct {
	// Sources 分片名称到连接信息的映射，Open 时使用
	Sources map[string]Source `mapstructure:"sources" yaml:"sources"`

	// SlowThreshold 慢 SQL 阈值 (默认: 200ms)
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`

	// SilentSQL 关闭 SQL 日志
	SilentSQL bool `mapstructure:"silent_sql" yaml:"silent_sql"`

	// Tracing 为每个分片挂载 otelgorm 插桩
	Tracing bool `mapstructure:"tracing" yaml:"tracing"`

	// ShardingRules 分片内的水平分表规则，作用于所有分片
	ShardingRules []ShardingRule `mapstructure:"sharding_rules" yaml:"sharding_rules"`
}

// ShardingRule 分表规则
type ShardingRule struct {
	ShardingKey    string   `mapstructure:"sharding_key" yaml:"sharding_key"`         // 分表键，如 "user_id"
	NumberOfShards uint     `mapstructure:"number_of_shards" yaml:"number_of_shards"` // 分表数量
	Tables         []string `mapstructure:"tables" yaml:"tables"`                     // 逻辑表名

	// PrimaryKey 主键生成方式：snowflake（默认）、pg_sequence、mysql_sequence
	PrimaryKey string `mapstructure:"primary_key" yaml:"primary_key"`
}

func (c *Config) setDefaults() {
	if c.SlowThreshold == 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
	for i := range c.ShardingRules {
		if c.ShardingRules[i].PrimaryKey == "" {
			c.ShardingRules[i].PrimaryKey = "snowflake"
		}
	}
}

func (c *Config) validate() error {
	for _, rule := range c.ShardingRules {
		if rule.ShardingKey == "" {
			return xerrors.Wrap(ErrInvalidConfig, "sharding key cannot be empty")
		}
		if rule.NumberOfShards == 0 {
			return xerrors.Wrap(ErrInvalidConfig, "number of shards must be greater than 0")
		}
		if len(rule.Tables) == 0 {
			return xerrors.Wrap(ErrInvalidConfig, "sharding tables cannot be empty")
		}
		for _, table := range rule.Tables {
			if table == "" {
				return xerrors.Wrap(ErrInvalidConfig, "sharding table name cannot be empty")
			}
		}
		if _, ok := primaryKeyGenerators[rule.PrimaryKey]; !ok {
			return xerrors.Wrapf(ErrInvalidConfig, "unsupported primary key generator %q", rule.PrimaryKey)
		}
	}
	return nil
}

// connector 按驱动创建连接器，连接器名称统一使用分片名
func (s Source) connector(name string, opts ...connector.Option) (connector.DatabaseConnector, error) {
	switch s.Driver {
	case DriverMySQL:
		if s.MySQL == nil {
			return nil, xerrors.Wrapf(ErrInvalidConfig, "shard %q: mysql section is required", name)
		}
		cfg := *s.MySQL
		cfg.Name = name
		return connector.NewMySQL(&cfg, opts...)
	case DriverPostgreSQL, "postgresql":
		if s.PostgreSQL == nil {
			return nil, xerrors.Wrapf(ErrInvalidConfig, "shard %q: postgresql section is required", name)
		}
		cfg := *s.PostgreSQL
		cfg.Name = name
		return connector.NewPostgreSQL(&cfg, opts...)
	case DriverSQLite:
		if s.SQLite == nil {
			return nil, xerrors.Wrapf(ErrInvalidConfig, "shard %q: sqlite section is required", name)
		}
		cfg := *s.SQLite
		cfg.Name = name
		return connector.NewSQLite(&cfg, opts...)
	default:
		return nil, xerrors.Wrapf(ErrInvalidConfig, "shard %q: unsupported driver %q", name, s.Driver)
	}
}
