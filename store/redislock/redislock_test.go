package redislock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/store/redislock"
)

// newClient connects to the Redis named by XP_TEST_REDIS_ADDR or skips.
func newClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("XP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("XP_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func testUser() ledger.UserID {
	return ledger.UserID("test-" + uuid.NewString())
}

func TestLocker_SecondLockWaitsForRelease(t *testing.T) {
	// GIVEN: A held lease
	l := redislock.New(newClient(t), time.Minute)
	user := testUser()
	unlock, err := l.Lock(context.Background(), user)
	require.NoError(t, err)

	// WHEN: Another caller tries with a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, user)

	// THEN: It times out, and succeeds once the lease is released
	assert.ErrorIs(t, err, ledger.ErrLockTimeout)

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), user)
	require.NoError(t, err)
	again()
}

func TestLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	client := newClient(t)
	l := redislock.New(client, 100*time.Millisecond)
	user := testUser()

	stale, err := l.Lock(context.Background(), user)
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)

	fresh, err := l.Lock(context.Background(), user)
	require.NoError(t, err)
	defer fresh()

	stale()

	n, err := client.Exists(context.Background(), "xpledger:lock:"+string(user)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the new holder's key survives the stale release")
}
