package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLock(t *testing.T) (*TurnLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	lock := NewTurnLock(rdb, time.Second, zap.NewNop())
	// без ретраев, чтобы занятость проявлялась сразу
	lock.retries = 0
	return lock, mr
}

func TestAcquire_SecondTurnOfSameSessionIsBusy(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, 1, "phone", "call-1")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, 1, "phone", "call-1")
	assert.ErrorIs(t, err, ErrBusy)

	release()

	release2, err := lock.Acquire(ctx, 1, "phone", "call-1")
	require.NoError(t, err, "после освобождения блокировка берётся снова")
	release2()
}

func TestAcquire_DifferentSessionsDoNotBlockEachOther(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	r1, err := lock.Acquire(ctx, 1, "phone", "call-1")
	require.NoError(t, err)
	defer r1()

	r2, err := lock.Acquire(ctx, 1, "phone", "call-2")
	require.NoError(t, err)
	defer r2()

	r3, err := lock.Acquire(ctx, 2, "phone", "call-1")
	require.NoError(t, err)
	defer r3()
}

func TestAcquire_ExpiredLockIsNotReleasedByStaleHolder(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	staleRelease, err := lock.Acquire(ctx, 1, "phone", "call-1")
	require.NoError(t, err)

	// TTL истёк, ключ перезанял следующий ход
	mr.FastForward(2 * time.Second)
	release, err := lock.Acquire(ctx, 1, "phone", "call-1")
	require.NoError(t, err)
	defer release()

	// просроченный держатель не должен снять чужую блокировку
	staleRelease()
	_, err = lock.Acquire(ctx, 1, "phone", "call-1")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestAcquire_NilLockAlwaysProceeds(t *testing.T) {
	var lock *TurnLock

	release, err := lock.Acquire(context.Background(), 1, "phone", "call-1")
	require.NoError(t, err)
	release()
}

func TestAcquire_RedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewTurnLock(rdb, time.Second, zap.NewNop())

	mr.Close()

	release, err := lock.Acquire(context.Background(), 1, "phone", "call-1")
	require.NoError(t, err, "недоступный Redis не должен блокировать приём звонков")
	release()
}
