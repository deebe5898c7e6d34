// Package clog 为 shardkit 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，每个组件派生自己的子 Logger
//   - 支持从 Context 中提取字段（如 trace_id、shard）
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info("shard assigned", clog.String("shard", "shard_a"))
//
// 组件内部通常这样派生：
//
//	l := logger.WithNamespace("idgen")
//	l.Warn("counter contention", clog.Int("attempt", 2))
package clog

import "context"

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// 带 Context 的版本会自动提取 WithContextField 配置的字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 示例：
	//   logger := root.WithNamespace("shardkit")
	//   logger.WithNamespace("shardmap") // namespace=shardkit.shardmap
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对同一根 Logger 派生的所有子 Logger 生效
	SetLevel(level Level)
}
