package roster

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisRecordStore keeps the record set as a single string key.
type RedisRecordStore struct {
	client *redis.Client
	key    string
}

func NewRedisRecordStore(client *redis.Client, key string) *RedisRecordStore {
	return &RedisRecordStore{client: client, key: key}
}

func (r *RedisRecordStore) Get(ctx context.Context) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisRecordStore) Set(ctx context.Context, payload string) error {
	return r.client.Set(ctx, r.key, payload, 0).Err()
}
