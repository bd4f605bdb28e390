package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinic-appointments-server/internal/config"
	"clinic-appointments-server/internal/models"
)

const scheduleKeyPrefix = "clinic:schedule:"

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// ScheduleCache keeps each doctor's weekly windows as one JSON value.
type ScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScheduleCache(client *redis.Client, ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{client: client, ttl: ttl}
}

func scheduleKey(doctorID string) string {
	return scheduleKeyPrefix + doctorID
}

// Get returns the cached windows; found is false on a miss.
func (c *ScheduleCache) Get(ctx context.Context, doctorID string) ([]models.DoctorSchedule, bool, error) {
	raw, err := c.client.Get(ctx, scheduleKey(doctorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("schedule cache get: %w", err)
	}

	var windows []models.DoctorSchedule
	if err := json.Unmarshal(raw, &windows); err != nil {
		return nil, false, fmt.Errorf("schedule cache decode: %w", err)
	}
	return windows, true, nil
}

func (c *ScheduleCache) Set(ctx context.Context, doctorID string, windows []models.DoctorSchedule) error {
	raw, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("schedule cache encode: %w", err)
	}
	if err := c.client.Set(ctx, scheduleKey(doctorID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("schedule cache set: %w", err)
	}
	return nil
}

func (c *ScheduleCache) Invalidate(ctx context.Context, doctorID string) error {
	if err := c.client.Del(ctx, scheduleKey(doctorID)).Err(); err != nil {
		return fmt.Errorf("schedule cache invalidate: %w", err)
	}
	return nil
}
