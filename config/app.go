package config

import (
	"context"
	"sort"
	"time"

	"github.com/ceyewan/shardkit/assign"
	"github.com/ceyewan/shardkit/clog"
	"github.com/ceyewan/shardkit/connector"
	"github.com/ceyewan/shardkit/db"
	"github.com/ceyewan/shardkit/idgen"
	"github.com/ceyewan/shardkit/metrics"
	"github.com/ceyewan/shardkit/shardmap"
	"github.com/ceyewan/shardkit/topology"
	"github.com/ceyewan/shardkit/trace"
	"github.com/ceyewan/shardkit/xerrors"
)

// ShardEntry 单个分片的配置：拓扑字段与连接字段写在同一层
//
//	shards:
//	  shard_a:
//	    shard_group: users
//	    driver: sqlite
//	    sqlite:
//	      path: ./data/shard_a.db
//	  shard_a_replica:
//	    primary: shard_a
//	    shard_group: users
//	    driver: sqlite
//	    sqlite:
//	      path: ./data/shard_a_replica.db
type ShardEntry struct {
	topology.ShardSpec `mapstructure:",squash" yaml:",inline"`
	db.Source          `mapstructure:",squash" yaml:",inline"`
}

// DatabaseConfig 集群级别的数据库选项
type DatabaseConfig struct {
	SlowThreshold time.Duration     `mapstructure:"slow_threshold" yaml:"slow_threshold"`
	SilentSQL     bool              `mapstructure:"silent_sql" yaml:"silent_sql"`
	Tracing       bool              `mapstructure:"tracing" yaml:"tracing"`
	ShardingRules []db.ShardingRule `mapstructure:"sharding_rules" yaml:"sharding_rules"`
}

// AssignConfig 分片选择配置
type AssignConfig struct {
	// Selector round_robin（默认）| random | hash
	Selector string `mapstructure:"selector" yaml:"selector"`
}

// AppConfig shardkit 应用的完整配置
type AppConfig struct {
	Log     clog.Config    `mapstructure:"log" yaml:"log"`
	Metrics metrics.Config `mapstructure:"metrics" yaml:"metrics"`
	Trace   trace.Config   `mapstructure:"trace" yaml:"trace"`

	Shards map[string]ShardEntry `mapstructure:"shards" yaml:"shards"`
	// Ungrouped 未分组分片的处理方式：invisible（默认）| group
	Ungrouped string         `mapstructure:"ungrouped" yaml:"ungrouped"`
	Database  DatabaseConfig `mapstructure:"database" yaml:"database"`

	Redis *connector.RedisConfig `mapstructure:"redis" yaml:"redis"`
	Etcd  *connector.EtcdConfig  `mapstructure:"etcd" yaml:"etcd"`

	Mapping shardmap.Config `mapstructure:"mapping" yaml:"mapping"`
	IDGen   idgen.Config    `mapstructure:"idgen" yaml:"idgen"`
	Assign  AssignConfig    `mapstructure:"assign" yaml:"assign"`
}

// Validate 检查跨组件的配置约束，各组件自身的校验在构造时进行
func (c *AppConfig) Validate() error {
	if len(c.Shards) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "no shards configured")
	}
	if _, ok := topology.ParseUngroupedPolicy(c.Ungrouped); !ok {
		return xerrors.Wrapf(ErrValidationFailed, "unknown ungrouped policy %q", c.Ungrouped)
	}
	if c.Mapping.Backend == "" || c.Mapping.Backend == shardmap.BackendGorm {
		if _, ok := c.Shards[c.Mapping.Database]; c.Mapping.Database != "" && !ok {
			return xerrors.Wrapf(ErrValidationFailed, "mapping database %q is not a configured shard", c.Mapping.Database)
		}
	}
	if c.Mapping.Backend == shardmap.BackendRedis && c.Redis == nil {
		return xerrors.Wrap(ErrValidationFailed, "redis mapping backend requires redis config")
	}
	if c.Mapping.Backend == shardmap.BackendEtcd && c.Etcd == nil {
		return xerrors.Wrap(ErrValidationFailed, "etcd mapping backend requires etcd config")
	}
	if c.IDGen.Strategy == idgen.StrategyRedis && c.Redis == nil {
		return xerrors.Wrap(ErrValidationFailed, "redis id strategy requires redis config")
	}
	return nil
}

// ShardNames 按字典序返回所有分片名
func (c *AppConfig) ShardNames() []string {
	names := make([]string, 0, len(c.Shards))
	for name := range c.Shards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Topology 从分片配置构建拓扑
func (c *AppConfig) Topology() (*topology.Topology, error) {
	policy, ok := topology.ParseUngroupedPolicy(c.Ungrouped)
	if !ok {
		return nil, xerrors.Wrapf(ErrValidationFailed, "unknown ungrouped policy %q", c.Ungrouped)
	}
	specs := make(map[string]topology.ShardSpec, len(c.Shards))
	for name, entry := range c.Shards {
		specs[name] = entry.ShardSpec
	}
	return topology.FromConfig(specs, topology.WithUngroupedPolicy(policy))
}

// DBConfig 从分片配置构建集群配置，副本分片同样会建立连接
//
// 开启链路追踪时各分片自动挂载 SQL 插桩。
func (c *AppConfig) DBConfig() *db.Config {
	sources := make(map[string]db.Source, len(c.Shards))
	for name, entry := range c.Shards {
		sources[name] = entry.Source
	}
	return &db.Config{
		Sources:       sources,
		SlowThreshold: c.Database.SlowThreshold,
		SilentSQL:     c.Database.SilentSQL,
		Tracing:       c.Database.Tracing || c.Trace.Enabled,
		ShardingRules: c.Database.ShardingRules,
	}
}

// Selector 按配置创建分片选择器，hash 选择器使用 key 提取哈希键
func (c *AppConfig) Selector(key assign.KeyFunc) (assign.Selector, error) {
	return assign.NewSelector(c.Assign.Selector, key)
}

// LoadApp 使用 cfg 加载并校验 AppConfig
func LoadApp(ctx context.Context, cfg *Config) (*AppConfig, string, error) {
	loader, err := New(cfg)
	if err != nil {
		return nil, "", err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, "", err
	}
	var app AppConfig
	if err := loader.Unmarshal(&app); err != nil {
		return nil, "", xerrors.Wrap(err, "config: unmarshal")
	}
	if err := app.Validate(); err != nil {
		return nil, "", err
	}
	return &app, loader.ConfigFileUsed(), nil
}
