package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, DefaultTTL, newNoopLogger()), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	n, err := store.Issue(ctx, mixedCaseAddr)
	require.NoError(t, err)

	assert.True(t, mr.Exists("wallet_nonce:0xabcdef0123456789abcdef0123456789abcdef01"))
	assert.True(t, store.Verify(ctx, "0xabcdef0123456789abcdef0123456789abcdef01", n))
	assert.False(t, store.Verify(ctx, mixedCaseAddr, "wrong"))

	store.Consume(ctx, mixedCaseAddr)
	assert.False(t, store.Verify(ctx, mixedCaseAddr, n))
}

func TestRedisStore_KeyTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	n, err := store.Issue(ctx, mixedCaseAddr)
	require.NoError(t, err)

	mr.FastForward(301 * time.Second)
	assert.False(t, store.Verify(ctx, mixedCaseAddr, n))
}

func TestRedisStore_RecordExpiryDeletesKey(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	n, err := store.Issue(ctx, mixedCaseAddr)
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.False(t, store.Verify(ctx, mixedCaseAddr, n))
	assert.False(t, mr.Exists("wallet_nonce:0xabcdef0123456789abcdef0123456789abcdef01"))
}

func TestRedisStore_IssueReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	store, _ := setupRedisStore(t)

	first, err := store.Issue(ctx, mixedCaseAddr)
	require.NoError(t, err)
	second, err := store.Issue(ctx, mixedCaseAddr)
	require.NoError(t, err)

	assert.False(t, store.Verify(ctx, mixedCaseAddr, first))
	assert.True(t, store.Verify(ctx, mixedCaseAddr, second))
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	require.NoError(t, mr.Set("wallet_nonce:0x01", "not-json"))
	assert.False(t, store.Verify(ctx, "0x01", "anything"))
}

func TestRedisStore_BackendDown(t *testing.T) {
	ctx := context.Background()
	store, _ := setupRedisStore(t)
	require.NoError(t, store.client.Close())

	_, err := store.Issue(ctx, mixedCaseAddr)
	assert.Error(t, err)
	assert.False(t, store.Verify(ctx, mixedCaseAddr, "x"))
	assert.NotPanics(t, func() {
		store.Consume(ctx, mixedCaseAddr)
		store.Sweep(ctx)
	})
}
