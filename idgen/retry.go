package idgen

import (
	"context"
	"math/rand/v2"
	"time"
)

// backoff 返回第 attempt 次重试（从 0 开始）前的等待时间，full jitter
func (r RetryConfig) backoff(attempt int) time.Duration {
	ceiling := r.BaseBackoff
	for i := 0; i < attempt && ceiling < r.MaxBackoff; i++ {
		ceiling *= 2
	}
	if ceiling > r.MaxBackoff {
		ceiling = r.MaxBackoff
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling) + 1))
}

// sleep 等待 d 或 ctx 结束
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
