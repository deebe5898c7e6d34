// Package xerrors 提供 shardkit 的标准化错误处理工具。
//
// 除了 Wrap/WithCode 等通用包装能力外，这里集中定义了分片核心的错误分类，
// 各组件通过包装这些哨兵错误对外暴露可区分的结果：
//
//	ErrConfiguration  分片组没有可用的主分片，不重试
//	ErrContention     ID 生成时的唯一约束冲突，可重试
//	ErrDuplicateKey   分片映射已存在，不重试
//	ErrMissingTarget  写入时没有绑定或提供目标连接，不重试
//	ErrNotFound       查询的 key 没有映射，属于正常结果
//	ErrInvalidShard   选中或写入的分片不在当前主分片集合中
//	ErrInvalidInput   参数不合法，例如空的 shard key
package xerrors

import (
	"errors"
	"fmt"
)

// 分片核心错误分类
var (
	ErrConfiguration = errors.New("configuration error")
	ErrContention    = errors.New("contention")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrMissingTarget = errors.New("missing target connection")
	ErrNotFound      = errors.New("not found")
	ErrInvalidShard  = errors.New("invalid shard")
	ErrInvalidInput  = errors.New("invalid input")
)

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// retryableError 标记可重试的错误
type retryableError struct {
	cause error
}

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

// Retryable 将错误标记为可重试。
//
// 只有瞬时性的失败（例如计数表的唯一约束冲突）才应该被标记，
// 配置错误、重复 key 等逻辑错误重试也不会改变结果。
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{cause: err}
}

// IsRetryable 判断错误链中是否有可重试标记。
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Must 如果 err 不为 nil，则 panic。仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 合并多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
