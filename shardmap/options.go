package shardmap

import (
	"github.com/ceyewan/shardkit/clog"
)

// Option 存储选项
type Option func(*options)

type options struct {
	logger clog.Logger
	table  string
	prefix string
}

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTable 设置映射表名，用于 GormStore 与 DynamoStore，空值忽略
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}

// WithKeyPrefix 设置键前缀，用于 RedisStore 与 EtcdStore，空值忽略
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

func applyOptions(backend string, opts ...Option) *options {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithNamespace("shardmap").With(clog.String("backend", backend))
	return o
}
