/*
Package redislock provides a Redis-backed generic.Locker.

PURPOSE:
  Serializes ledger writers of one (employee, period) across several server
  instances. A single instance can use generic.KeyedMutex instead.

PROTOCOL:
  acquire   SET <prefix><key> <token> NX PX <ttl>, retried until ctx is done
  release   Lua script deletes the key only if it still holds <token>

  The TTL bounds how long a crashed holder blocks others. It must exceed the
  longest ledger transaction.
*/
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warp/vacation-engine/generic"
)

const (
	DefaultTTL        = 10 * time.Second
	DefaultRetryDelay = 25 * time.Millisecond
	DefaultPrefix     = "vacaciones:lock:"

	releaseTimeout = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements generic.Locker on top of a Redis client.
type Locker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
	logger     *zap.Logger
}

var _ generic.Locker = (*Locker)(nil)

// Option configures a Locker.
type Option func(*Locker)

func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(l *Locker) { l.prefix = prefix }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		client:     client,
		ttl:        DefaultTTL,
		retryDelay: DefaultRetryDelay,
		prefix:     DefaultPrefix,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("redislock")
	return l
}

// Lock blocks until key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &generic.StorageError{Op: "acquire lock " + key, Err: err}
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(name, token) })
	}, nil
}

func (l *Locker) release(name, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{name}, token).Int()
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		l.logger.Error("release lock failed", zap.String("key", name), zap.Error(err))
	case n == 0:
		// The TTL expired and someone else may hold the lock now.
		l.logger.Warn("lock expired before release", zap.String("key", name))
	}
}

// Ping checks that Redis answers.
func (l *Locker) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redislock: ping: %w", err)
	}
	return nil
}
