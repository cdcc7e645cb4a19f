package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.values == nil {
		f.values = map[string]string{}
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockMutualExclusion(t *testing.T) {
	store := &fakeRedis{}
	first, err := NewRedisLock(store, "lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(context.Background()))
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	store := &fakeRedis{}
	holder, err := NewRedisLock(store, "lock:cron", time.Minute)
	require.NoError(t, err)
	bystander, err := NewRedisLock(store, "lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := holder.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// A replica that never acquired must not free the lock.
	require.NoError(t, bystander.Release(context.Background()))
	_, exists := store.values["lock:cron"]
	assert.True(t, exists)
}
