package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portal/internal/config"
	"portal/internal/models"

	"github.com/redis/go-redis/v9"
)

const flashKeyPrefix = "flash:"

type RedisFlashRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisFlashRepository(client *redis.Client, ttl time.Duration) *RedisFlashRepository {
	return &RedisFlashRepository{
		client: client,
		ttl:    ttl,
	}
}

func flashKey(sessionID string) string {
	return flashKeyPrefix + sessionID
}

func (r *RedisFlashRepository) Push(ctx context.Context, sessionID string, flash models.Flash) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(flash)
	if err != nil {
		return fmt.Errorf("failed to marshal flash: %w", err)
	}

	key := flashKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push flash to redis: %w", err)
	}
	return nil
}

func (r *RedisFlashRepository) Pop(ctx context.Context, sessionID string) ([]models.Flash, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	key := flashKey(sessionID)
	pipe := r.client.TxPipeline()
	list := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to pop flashes from redis: %w", err)
	}

	values, err := list.Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read flashes: %w", err)
	}

	flashes := make([]models.Flash, 0, len(values))
	for _, v := range values {
		var f models.Flash
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flash: %w", err)
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}

// Ping reports whether the flash store is reachable; used by /readyz.
func (r *RedisFlashRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return Ping(ctx, r.client)
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
