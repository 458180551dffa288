package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func RedisClient(address string, port int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", address, port),
		Password: "",
		DB:       0, // use default DB
	})
}

// RedisUsernameIndex maps usernames to user ids with "<username>:user_id" keys
type RedisUsernameIndex struct {
	client *redis.Client
}

func NewRedisUsernameIndex(client *redis.Client) *RedisUsernameIndex {
	return &RedisUsernameIndex{client: client}
}

func usernameKey(username string) string {
	return username + ":user_id"
}

// Lookup returns the user id cached for username, if any
func (r *RedisUsernameIndex) Lookup(ctx context.Context, username string) (string, bool, error) {
	userID, err := r.client.Get(ctx, usernameKey(username)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (r *RedisUsernameIndex) Remember(ctx context.Context, username string, userID string) error {
	return r.client.Set(ctx, usernameKey(username), userID, 0).Err()
}

func (r *RedisUsernameIndex) Forget(ctx context.Context, username string) error {
	return r.client.Del(ctx, usernameKey(username)).Err()
}
