package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type rateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// incrWithTTL 自增计数并确保 key 带有过期时间。ExpireNX 只在 key 尚无 TTL
// 时生效，上一次设置失败的 key 会在下一次调用时补上。
// 设置 TTL 失败时计数仍然有效，与错误一并返回。
func incrWithTTL(ctx context.Context, client rateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if err := client.ExpireNX(ctx, key, ttl).Err(); err != nil {
		return count, fmt.Errorf("expire %s: %w", key, err)
	}
	return count, nil
}

// loginLimiter 按 IP+用户名 做每小时固定窗口限流，limit<=0 或无 Redis 时不限制。
type loginLimiter struct {
	counter rateCounter
	limit   int
	now     func() time.Time
}

func newLoginLimiter(counter rateCounter, limit int) *loginLimiter {
	return &loginLimiter{counter: counter, limit: limit, now: time.Now}
}

func (l *loginLimiter) enabled() bool {
	return l != nil && l.counter != nil && l.limit > 0
}

func (l *loginLimiter) key(ip, username string) string {
	return "rate:login:" + ip + ":" + strings.ToLower(username) + ":" + l.now().UTC().Format("2006010215")
}

// allow 返回本次尝试是否在限额内。计数失败时放行。
func (l *loginLimiter) allow(ctx context.Context, ip, username string) (bool, error) {
	if !l.enabled() {
		return true, nil
	}
	count, err := incrWithTTL(ctx, l.counter, l.key(ip, username), time.Hour)
	if count == 0 {
		return true, err
	}
	return count <= int64(l.limit), err
}
