package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/atlantyde-labs/cognitive-suite/config"
	"github.com/atlantyde-labs/cognitive-suite/ledger"
	memstore "github.com/atlantyde-labs/cognitive-suite/ledger/store"
	"github.com/atlantyde-labs/cognitive-suite/store/filestore"
	"github.com/atlantyde-labs/cognitive-suite/store/postgres"
	"github.com/atlantyde-labs/cognitive-suite/store/redislock"
	"github.com/atlantyde-labs/cognitive-suite/store/sqlite"
)

func noClose() error { return nil }

// openStore opens the ledger backend named by cfg.Store.
func openStore(ctx context.Context, cfg config.Config) (ledger.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreFile:
		s, err := filestore.New(cfg.UsersPath())
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := postgres.New(ctx, postgres.DefaultConfig(cfg.PostgresURL))
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, s.Close, nil
	case config.StoreMemory:
		return memstore.NewMemory(), noClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// openRedisLocker connects to Redis for cross-process per-user locks.
func openRedisLocker(ctx context.Context, cfg config.Config) (ledger.Locker, func() error, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return redislock.New(client, cfg.LockTTL), client.Close, nil
}
