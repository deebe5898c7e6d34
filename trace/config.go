package trace

import "github.com/ceyewan/shardkit/xerrors"

// Config 链路追踪配置
type Config struct {
	// Enabled 关闭时 New 返回 noop Provider
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"` // OTLP gRPC 地址 (默认: "localhost:4317")
	Sampler     float64 `mapstructure:"sampler" yaml:"sampler"`   // 采样率 [0, 1] (默认: 1)
	Batcher     string  `mapstructure:"batcher" yaml:"batcher"`   // "batch"（默认）| "simple"
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "shardkit"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.Batcher == "" {
		c.Batcher = "batch"
	}
}

func (c *Config) validate() error {
	if c.Sampler < 0 || c.Sampler > 1 {
		return xerrors.Wrapf(xerrors.ErrConfiguration, "trace: sampler must be between 0 and 1, got %v", c.Sampler)
	}
	if c.Batcher != "batch" && c.Batcher != "simple" {
		return xerrors.Wrapf(xerrors.ErrConfiguration, "trace: batcher must be \"batch\" or \"simple\", got %q", c.Batcher)
	}
	return nil
}
