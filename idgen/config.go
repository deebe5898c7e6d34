package idgen

import (
	"time"

	"github.com/ceyewan/shardkit/xerrors"
)

// 策略名称
const (
	StrategyTable = "table"
	StrategyRedis = "redis"
)

// Config ID 生成配置
type Config struct {
	// Strategy 生成策略: "table"（默认）| "redis"
	Strategy string `mapstructure:"strategy" yaml:"strategy"`

	// KeyPrefix Redis 键前缀 (默认: "shardkit:idgen")
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// Retry 计数表冲突时的重试策略
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig 冲突重试配置，退避时间在 [0, min(MaxBackoff, BaseBackoff*2^n)] 内随机
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"` // 总尝试次数 (默认: 5)
	BaseBackoff time.Duration `mapstructure:"base_backoff" yaml:"base_backoff"` // 初始退避 (默认: 5ms)
	MaxBackoff  time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`   // 退避上限 (默认: 200ms)
}

func (c *Config) setDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyTable
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "shardkit:idgen"
	}
	c.Retry.setDefaults()
}

func (c *Config) validate() error {
	switch c.Strategy {
	case StrategyTable, StrategyRedis:
	default:
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported strategy %q", c.Strategy)
	}
	if c.Retry.MaxAttempts < 1 {
		return xerrors.Wrap(ErrInvalidConfig, "retry.max_attempts must be positive")
	}
	if c.Retry.MaxBackoff < c.Retry.BaseBackoff {
		return xerrors.Wrap(ErrInvalidConfig, "retry.max_backoff must not be less than base_backoff")
	}
	return nil
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.BaseBackoff == 0 {
		r.BaseBackoff = 5 * time.Millisecond
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 200 * time.Millisecond
	}
}
