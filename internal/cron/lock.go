package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 15 * time.Minute

// Lock gives one worker instance exclusive use of a job at a time.
type Lock interface {
	Acquire(ctx context.Context, job string) (bool, error)
	Release(ctx context.Context, job string) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock holds one key per job, valued with a token unique to this
// process. A crashed holder loses the job once the TTL lapses.
type RedisLock struct {
	store  lockStore
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisLock(store lockStore, prefix string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case prefix == "":
		return nil, errors.New("lock prefix is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, prefix: prefix, ttl: ttl, tokens: map[string]string{}}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, job string) (bool, error) {
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.prefix+":"+job, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s lock: %w", job, err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[job] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release is a no-op when this instance never held job or its hold expired
// and another worker took over.
func (l *RedisLock) Release(ctx context.Context, job string) error {
	l.mu.Lock()
	token, held := l.tokens[job]
	delete(l.tokens, job)
	l.mu.Unlock()
	if !held {
		return nil
	}
	if _, err := l.store.DeleteIfEquals(ctx, l.prefix+":"+job, token); err != nil {
		return fmt.Errorf("release %s lock: %w", job, err)
	}
	return nil
}
