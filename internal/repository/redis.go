package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
)

func slotKey(date time.Time, staffID, serviceID int64) string {
	return fmt.Sprintf("slots:%s:%d:%d", date.Format(models.DateLayout), staffID, serviceID)
}

func slotDayPrefix(date time.Time, staffID int64) string {
	return fmt.Sprintf("slots:%s:%d:", date.Format(models.DateLayout), staffID)
}

// RedisCache keeps computed slot lists and fixed-window rate limit counters in redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) GetSlots(ctx context.Context, date time.Time, staffID, serviceID int64) ([]string, bool, error) {
	if r.client == nil {
		return nil, false, errors.New("redis client is nil")
	}
	val, err := r.client.Get(ctx, slotKey(date, staffID, serviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get slots from redis: %w", err)
	}

	var slots []string
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	return slots, true, nil
}

func (r *RedisCache) SetSlots(ctx context.Context, date time.Time, staffID, serviceID int64, slots []string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if slots == nil {
		slots = []string{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}
	if err := r.client.Set(ctx, slotKey(date, staffID, serviceID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set slots in redis: %w", err)
	}
	return nil
}

// InvalidateDay drops every cached service list of one staff member on one date.
func (r *RedisCache) InvalidateDay(ctx context.Context, date time.Time, staffID int64) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	var keys []string
	iter := r.client.Scan(ctx, 0, slotDayPrefix(date, staffID)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan slot keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete slot keys: %w", err)
	}
	return nil
}

// fixedWindowScript increments the counter and starts its window in one step, so a
// counter never exists without an expiry.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Allow counts a hit for key in a fixed window shared by every process using this redis.
func (r *RedisCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client is nil")
	}
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = time.Minute.Milliseconds()
	}
	count, err := fixedWindowScript.Run(ctx, r.client, []string{"rate_limit:" + key}, ms).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to count rate limit hit: %w", err)
	}
	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
