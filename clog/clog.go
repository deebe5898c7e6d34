package clog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// NamespaceKey 是日志中命名空间的字段名
const NamespaceKey = "namespace"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用 NewProdDefaultConfig。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewProdDefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := applyOptions(opts...)

	w := o.writer
	if w == nil {
		var err error
		if w, err = resolveWriter(config.Output); err != nil {
			return nil, err
		}
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	handlerOpts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return &logger{
		handler:       handler,
		levelVar:      levelVar,
		namespace:     strings.Join(o.namespace, "."),
		contextFields: o.contextFields,
	}, nil
}

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// Default 返回一个进程级的默认 Logger（info 级别，console 格式输出到 stderr）
func Default() Logger {
	defaultOnce.Do(func() {
		l, err := New(&Config{Level: "info", Format: "console", Output: "stderr"})
		if err != nil {
			l = Discard()
		}
		defaultLogger = l
	})
	return defaultLogger
}

// resolveWriter 根据配置创建输出 writer
func resolveWriter(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", output, err)
		}
		return f, nil
	}
}

// replaceAttr 统一 Level 与 Time 的输出格式
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(level.String())
		}
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
		}
	}
	return a
}

// logger 是 Logger 接口的实现
type logger struct {
	handler       slog.Handler
	levelVar      *slog.LevelVar
	namespace     string
	contextFields []ContextField
	attrs         []slog.Attr
}

func (l *logger) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *logger) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *logger) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *logger) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *logger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *logger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *logger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *logger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *logger) With(fields ...Field) Logger {
	child := *l
	child.attrs = append(append([]slog.Attr{}, l.attrs...), fields...)
	return &child
}

func (l *logger) WithNamespace(parts ...string) Logger {
	child := *l
	all := make([]string, 0, len(parts)+1)
	if l.namespace != "" {
		all = append(all, l.namespace)
	}
	all = append(all, parts...)
	child.namespace = strings.Join(all, ".")
	return &child
}

func (l *logger) SetLevel(level Level) {
	l.levelVar.Set(level.slogLevel())
}

func (l *logger) log(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	// skip: runtime.Callers, log, Info/Warn 等
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	record := slog.NewRecord(time.Now(), level.slogLevel(), msg, pcs[0])
	if l.namespace != "" {
		record.AddAttrs(slog.String(NamespaceKey, l.namespace))
	}
	record.AddAttrs(l.attrs...)
	record.AddAttrs(fields...)
	for _, cf := range l.contextFields {
		if v := ctx.Value(cf.Key); v != nil {
			record.AddAttrs(slog.Any(cf.FieldName, v))
		}
	}

	_ = l.handler.Handle(ctx, record)
}
