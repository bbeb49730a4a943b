package idempotency_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/pkg/idempotency"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := idempotency.NewMemoryStore(time.Minute)

	ok, err := s.Claim(ctx, "paddle:evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "paddle:evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "duplicate is rejected")

	require.NoError(t, s.Release(ctx, "paddle:evt_1"))
	ok, err = s.Claim(ctx, "paddle:evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be claimed again")

	_, err = s.Claim(ctx, "", time.Hour)
	assert.ErrorIs(t, err, idempotency.ErrEmptyKey)
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := idempotency.NewMemoryStore(time.Minute)

	ok, _ := s.Claim(ctx, "k", 20*time.Millisecond)
	require.True(t, ok)
	time.Sleep(40 * time.Millisecond)

	ok, err := s.Claim(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_ConcurrentClaims(t *testing.T) {
	t.Parallel()

	s := idempotency.NewMemoryStore(time.Minute)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Claim(context.Background(), "evt", time.Hour); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) SetNX(ctx context.Context, key string, value any, exp time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, exp)
	return redis.NewBoolResult(args.Bool(0), args.Error(1))
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &mockRedis{}
	client.On("SetNX", ctx, "webhook:paypal:WH-1", mock.Anything, 72*time.Hour).Return(true, nil).Once()
	client.On("SetNX", ctx, "webhook:paypal:WH-1", mock.Anything, 72*time.Hour).Return(false, nil).Once()
	client.On("Del", ctx, []string{"webhook:paypal:WH-1"}).Return(1, nil).Once()

	s := idempotency.NewRedisStore(client, "webhook:")

	ok, err := s.Claim(ctx, "paypal:WH-1", 72*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "paypal:WH-1", 72*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "paypal:WH-1"))
	client.AssertExpectations(t)
}
