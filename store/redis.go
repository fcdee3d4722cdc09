package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps asset bytes on disk and records completed keys in a
// Redis set, so several workers sharing one asset directory agree on what is
// already done.
type RedisStore struct {
	files *FileStore
	rdb   *redis.Client
	set   string
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisStore indexes assets under root in the set "<namespace>:assets".
func NewRedisStore(root string, rdb *redis.Client, namespace string) (*RedisStore, error) {
	files, err := NewFileStore(root)
	if err != nil {
		return nil, err
	}
	return &RedisStore{files: files, rdb: rdb, set: namespace + ":assets"}, nil
}

func (s *RedisStore) Path(key Key) string {
	return s.files.Path(key)
}

func (s *RedisStore) Exists(ctx context.Context, key Key) (bool, error) {
	member, err := s.rdb.SIsMember(ctx, s.set, string(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember %s: %w", key, err)
	}
	if !member {
		return false, nil
	}
	// The index can outlive the file if someone cleaned the directory.
	return s.files.Exists(ctx, key)
}

func (s *RedisStore) Commit(ctx context.Context, key Key) error {
	if err := s.files.Commit(ctx, key); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, s.set, string(key)).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w", key, err)
	}
	return nil
}

// Forget drops key from the index and removes its file.
func (s *RedisStore) Forget(ctx context.Context, key Key) error {
	if err := s.rdb.SRem(ctx, s.set, string(key)).Err(); err != nil {
		return fmt.Errorf("redis srem %s: %w", key, err)
	}
	return s.files.Forget(ctx, key)
}
