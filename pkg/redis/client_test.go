package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
)

func TestIncrWithTTLStartsWindowOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := Key("rl", "payments", "10.0.0.1")

	for want := int64(1); want <= 3; want++ {
		n, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, []int64{60000}, mock.windows[key])
}

func TestSetNXGuardsWebhookReplays(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.IdempotencyKey("gateway-webhook", "charge.completed:PAY-1:successful")

	set, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, set, "replay must find the key taken")

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestDeleteIfEqualsOnlyRemovesOwnValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := Key("reconcile", "lock", "test", "payments")
	mock.data[key] = "owner-a"

	removed, err := client.DeleteIfEquals(ctx, key, "owner-b")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, "owner-a", mock.data[key])

	removed, err = client.DeleteIfEquals(ctx, key, "owner-a")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, mock.data, key)
}

func TestUninitializedClientFails(t *testing.T) {
	client := &Client{}
	_, err := client.IncrWithTTL(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "hm:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "hm:idempotency:scope", client.IdempotencyKey("scope", " "))
	assert.Equal(t, "hm:reconcile:lock:prod", Key("reconcile", "lock", "prod"))
	assert.Equal(t, "hm", Key())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@cache:6379/3",
		PoolSize:    20,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, opts.DB)
}

type mockCmdable struct {
	data    map[string]string
	counts  map[string]int64
	windows map[string][]int64
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:    map[string]string{},
		counts:  map[string]int64{},
		windows: map[string][]int64{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	if script == releaseOwned {
		if v, ok := m.data[key]; ok && v == args[0] {
			delete(m.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	m.counts[key]++
	if ms, ok := args[0].(int64); ok && m.counts[key] == 1 && ms > 0 {
		m.windows[key] = append(m.windows[key], ms)
	}
	return redis.NewCmdResult(m.counts[key], nil)
}
