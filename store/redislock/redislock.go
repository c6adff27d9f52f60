// Package redislock implements ledger.Locker with Redis so that several
// processes sharing one ledger store still serialize writes per user.
//
// A lock is a key set with SET NX PX holding a random token. Release deletes
// the key only if it still holds that token, so a holder whose lease expired
// cannot drop a lock someone else now owns.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

const (
	DefaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
	keyPrefix    = "xpledger:lock:"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out per-user leases stored in Redis.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

// New returns a Locker. ttl bounds how long a crashed holder can block a
// user; zero means DefaultTTL.
func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: client, ttl: ttl, retry: defaultRetry}
}

// Lock retries until the lease is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, user ledger.UserID) (func(), error) {
	key := keyPrefix + string(user)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		switch {
		case ok:
			return l.releaser(key, token), nil
		case err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("acquire lock for %s: %w", user, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w for %s: %v", ledger.ErrLockTimeout, user, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release regardless.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		})
	}
}
