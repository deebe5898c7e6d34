package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "shard %s", "a"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrNotFound, "shard key %q", "user:1")
	if wrapped.Error() != `shard key "user:1": not found` {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "CODE"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(ErrDuplicateKey, "mapping_exists")
	if coded.Error() != "[mapping_exists] duplicate key" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}

	// 包装后的带码错误依然应有 code
	wrapped := Wrap(coded, "record mapping")
	if code := GetCode(wrapped); code != "mapping_exists" {
		t.Errorf("GetCode(wrapped) = %q，期望 %q", code, "mapping_exists")
	}
	if !errors.Is(wrapped, ErrDuplicateKey) {
		t.Error("errors.Is(wrapped, ErrDuplicateKey) = false，期望 true")
	}
}

func TestRetryable(t *testing.T) {
	if err := Retryable(nil); err != nil {
		t.Errorf("Retryable(nil) = %v，期望 nil", err)
	}

	err := Retryable(Wrap(ErrContention, "insert counter row"))
	if !IsRetryable(err) {
		t.Error("IsRetryable(Retryable(err)) = false，期望 true")
	}
	// 外层继续包装后标记依然可见
	if !IsRetryable(Wrap(err, "next id")) {
		t.Error("IsRetryable(Wrap(Retryable(err))) = false，期望 true")
	}
	// 标记不应破坏错误链
	if !errors.Is(err, ErrContention) {
		t.Error("errors.Is(err, ErrContention) = false，期望 true")
	}
	if err.Error() != "insert counter row: contention" {
		t.Errorf("Retryable(err).Error() = %q", err.Error())
	}

	if IsRetryable(ErrConfiguration) {
		t.Error("IsRetryable(ErrConfiguration) = true，期望 false")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{ErrConfiguration, ErrContention, ErrDuplicateKey, ErrMissingTarget, ErrNotFound, ErrInvalidShard, ErrInvalidInput}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if (i == j) != errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = %v", a, b, errors.Is(a, b))
			}
		}
	}
}

func TestMust(t *testing.T) {
	if v := Must(42, nil); v != 42 {
		t.Errorf("Must(42, nil) = %d，期望 42", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Must(_, err) 未触发 panic")
		}
	}()
	Must(0, errors.New("error"))
}

func TestCombine(t *testing.T) {
	if err := Combine(); err != nil {
		t.Errorf("Combine() = %v，期望 nil", err)
	}
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	if err := Combine(nil, err1, nil); err != err1 {
		t.Errorf("Combine(nil, err1, nil) = %v，期望 %v", err, err1)
	}

	err2 := errors.New("error 2")
	combined := Combine(err1, err2)
	multi, ok := combined.(*MultiError)
	if !ok {
		t.Fatalf("Combine(err1, err2) 类型 = %T，期望 *MultiError", combined)
	}
	if len(multi.Errors) != 2 {
		t.Errorf("multi.Errors 长度 = %d，期望 2", len(multi.Errors))
	}
	if multi.Error() != "error 1 (and 1 more errors)" {
		t.Errorf("multi.Error() = %q", multi.Error())
	}
	if !errors.Is(combined, err2) {
		t.Error("errors.Is(combined, err2) = false，期望 true")
	}
}
