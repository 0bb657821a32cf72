package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 编辑窗口内两个并发编辑必须串行化：第二个写者要么等锁，
// 要么在拿到锁后基于最新的 last_edited_at 重新校验窗口。
// 批量标记佣金同理——锁保证同一管理员的重复提交不交错执行。
//
// 加锁：SET key value NX EX timeout
//   - NX 保证互斥，EX 防止持锁进程崩溃后死锁
//   - value 记录持有者，释放时校验，避免误删他人的锁
//
// 释放：Lua 脚本保证"校验+删除"原子执行
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，只删除仍由自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================
// 便捷构造：按业务维度加锁
// ============================================================

// NewEditLock 按交易维度的编辑锁
// 同一笔交易的编辑串行化，不同交易互不影响
func NewEditLock(client *redis.Client, transactionID int64, holder string) *DistributedLock {
	key := fmt.Sprintf("remit:lock:edit:%d", transactionID)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}

// NewSettleLock 结算操作锁（批量标记佣金、录入还款）
// 按管理员维度：同一管理员的结算操作串行，避免重复提交交错
func NewSettleLock(client *redis.Client, adminID int64, holder string) *DistributedLock {
	key := fmt.Sprintf("remit:lock:settle:%d", adminID)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
