// Package session сериализует обработку реплик одной телефонной сессии.
//
// Телефонный шлюз может доставить две реплики почти одновременно
// (перебивание, ретраи вебхука). Блокировка по ключу сессии не даёт им
// переплестись на чтении-изменении-записи состояния диалога.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrBusy — предыдущая реплика сессии ещё обрабатывается.
var ErrBusy = errors.New("session turn in progress")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// TurnLock — блокировка хода поверх Redis SETNX с TTL.
// nil-значение валидно и означает "без блокировки" (один инстанс,
// Redis не развёрнут): тогда Acquire всегда проходит.
type TurnLock struct {
	rdb      *redis.Client
	ttl      time.Duration
	retries  int
	retryGap time.Duration
	logger   *zap.Logger
}

func NewTurnLock(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *TurnLock {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &TurnLock{
		rdb:      rdb,
		ttl:      ttl,
		retries:  10,
		retryGap: 100 * time.Millisecond,
		logger:   logger,
	}
}

func lockKey(businessID int64, channel, sessionKey string) string {
	return fmt.Sprintf("turn:%d:%s:%s", businessID, channel, sessionKey)
}

// Acquire берёт блокировку сессии и возвращает функцию освобождения.
// Если блокировка занята дольше серии ретраев — ErrBusy. Если Redis
// недоступен, ход пропускается без блокировки: недоступность Redis
// не должна ронять приём звонков (инвариант записей защищает Postgres).
func (l *TurnLock) Acquire(ctx context.Context, businessID int64, channel, sessionKey string) (func(), error) {
	if l == nil || l.rdb == nil {
		return func() {}, nil
	}

	key := lockKey(businessID, channel, sessionKey)
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.logger.Warn("session lock unavailable, proceeding unlocked", zap.Error(err))
			return func() {}, nil
		}
		if ok {
			break
		}
		if attempt >= l.retries {
			return nil, ErrBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryGap):
		}
	}

	release := func() {
		// Сравнение токена: нельзя снять чужую блокировку, если наша
		// истекла по TTL и ключ успел перезанять другой ход.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("session lock release failed", zap.String("key", key), zap.Error(err))
		}
	}

	return release, nil
}
