//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memClient is an in-process RedisClient covering the calls the locker makes.
type memClient struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemClient() *memClient { return &memClient{data: map[string]string{}} }

func (m *memClient) Ping(ctx context.Context) error { return nil }
func (m *memClient) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}
func (m *memClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}
func (m *memClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
func (m *memClient) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}
func (m *memClient) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[keys[0]] == args[0].(string) {
		delete(m.data, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}
func (m *memClient) Close() error { return nil }

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	cli := newMemClient()
	l := NewLocker(cli)

	token, err := l.TryLock(ctx, "lock:sweep", time.Minute)
	if err != nil {
		t.Fatalf("expected first lock to succeed, got %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:sweep", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	// A foreign token must not release the lease.
	if err := l.Unlock(ctx, "lock:sweep", "someone-else"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:sweep", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected lock to survive a foreign unlock, got %v", err)
	}

	if err := l.Unlock(ctx, "lock:sweep", token); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:sweep", time.Minute); err != nil {
		t.Fatalf("expected lock to be free after owner unlock, got %v", err)
	}
}
