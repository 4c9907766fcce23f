package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "p", point{X: 1, Y: 2.5}, time.Minute))
	var got point
	require.NoError(t, mc.Get(ctx, "p", &got))
	assert.Equal(t, point{X: 1, Y: 2.5}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)

	require.NoError(t, mc.Delete(ctx, "p"))
	assert.ErrorIs(t, mc.Get(ctx, "p", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecent(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "ledger.lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "ledger.lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "ledger.lock"))
	ok, err = mc.TryLock(ctx, "ledger.lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "pumpwatch")

	mock.ExpectSet("pumpwatch:bars:ABC", []byte(`{"x":1,"y":2}`), time.Hour).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "bars:ABC", point{X: 1, Y: 2}, time.Hour))

	mock.ExpectGet("pumpwatch:bars:ABC").SetVal(`{"x":1,"y":2}`)
	var got point
	require.NoError(t, rc.Get(ctx, "bars:ABC", &got))
	assert.Equal(t, point{X: 1, Y: 2}, got)

	mock.ExpectGet("pumpwatch:bars:XYZ").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "bars:XYZ", &got), ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheLock(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "pumpwatch")

	fixedLockTokens(t, "tok-1", "tok-2")

	mock.ExpectSetNX("pumpwatch:ledger.lock", "tok-1", time.Minute).SetVal(true)
	ok, err := rc.TryLock(ctx, "ledger.lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectSetNX("pumpwatch:ledger.lock", "tok-2", time.Minute).SetVal(false)
	ok, err = rc.TryLock(ctx, "ledger.lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// the failed attempt must not replace the held token
	mock.ExpectEval(unlockScript, []string{"pumpwatch:ledger.lock"}, "tok-1").SetVal(int64(1))
	require.NoError(t, rc.Unlock(ctx, "ledger.lock"))

	// nothing held any more, so no command is sent
	require.NoError(t, rc.Unlock(ctx, "ledger.lock"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheUnlockLeavesForeignLock(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "pumpwatch")
	fixedLockTokens(t, "mine")

	mock.ExpectSetNX("pumpwatch:ledger.lock", "mine", time.Second).SetVal(true)
	ok, err := rc.TryLock(ctx, "ledger.lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// lock expired and another process holds it now; the script matches no token
	mock.ExpectEval(unlockScript, []string{"pumpwatch:ledger.lock"}, "mine").SetVal(int64(0))
	require.NoError(t, rc.Unlock(ctx, "ledger.lock"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheUnlockWithoutLockIsNoop(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "pumpwatch")

	require.NoError(t, rc.Unlock(context.Background(), "ledger.lock"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func fixedLockTokens(t *testing.T, tokens ...string) {
	t.Helper()
	orig := newLockToken
	i := 0
	newLockToken = func() string {
		tok := tokens[i%len(tokens)]
		i++
		return tok
	}
	t.Cleanup(func() { newLockToken = orig })
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "a:b", GenerateKey("a", "b"))
	assert.Equal(t, "b", GenerateKey("", "b"))
	assert.Equal(t, "bars:ABC:2024-01-01", GenerateKeyWithParams("bars", "ABC", "2024-01-01"))
}
