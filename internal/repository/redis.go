package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentcars/internal/config"
	"rentcars/internal/models"

	"github.com/redis/go-redis/v9"
)

const availableCarsKey = "cars:available"

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
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

// RedisCarCache keeps the available-cars listing as one JSON value.
type RedisCarCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCarCache(client *redis.Client, ttl time.Duration) *RedisCarCache {
	return &RedisCarCache{client: client, ttl: ttl}
}

func (c *RedisCarCache) GetAvailable(ctx context.Context) ([]*models.Car, bool, error) {
	if c.client == nil {
		return nil, false, errors.New("redis client is nil")
	}
	val, err := c.client.Get(ctx, availableCarsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cars from redis: %w", err)
	}

	var cars []*models.Car
	if err := json.Unmarshal(val, &cars); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cars: %w", err)
	}
	return cars, true, nil
}

func (c *RedisCarCache) SetAvailable(ctx context.Context, cars []*models.Car) error {
	if c.client == nil {
		return errors.New("redis client is nil")
	}
	if cars == nil {
		cars = []*models.Car{}
	}
	data, err := json.Marshal(cars)
	if err != nil {
		return fmt.Errorf("failed to marshal cars: %w", err)
	}
	if err := c.client.Set(ctx, availableCarsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cars in redis: %w", err)
	}
	return nil
}

func (c *RedisCarCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis client is nil")
	}
	if err := c.client.Del(ctx, availableCarsKey).Err(); err != nil {
		return fmt.Errorf("failed to delete cars from redis: %w", err)
	}
	return nil
}
