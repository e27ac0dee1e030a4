package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"

	"github.com/go-redis/redis/v8"
)

const DefaultStatsTTL = 30 * time.Second

// Cache keeps per-event stats in Redis for a short TTL. Booking writes
// call Invalidate after commit, so a stale entry lives at most one TTL
// when an invalidation is lost.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Cache{Client: client, TTL: ttl, Logger: log}
}

func statsKey(eventID int64) string {
	return "event_stats:" + strconv.FormatInt(eventID, 10)
}

// Get returns the cached stats and whether there was an entry.
func (c *Cache) Get(ctx context.Context, eventID int64) (*models.EventStats, bool, error) {
	raw, err := c.Client.Get(ctx, statsKey(eventID)).Bytes()
	if err == redis.Nil {
		metrics.StatsCacheRequests.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.StatsCacheRequests.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("get stats for event %d: %w", eventID, err)
	}

	var stats models.EventStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A corrupt entry is treated as a miss and overwritten.
		metrics.StatsCacheRequests.WithLabelValues("miss").Inc()
		c.Logger.Warn("CACHE", fmt.Sprintf("Dropping unreadable stats entry for event %d: %v", eventID, err))
		return nil, false, nil
	}
	metrics.StatsCacheRequests.WithLabelValues("hit").Inc()
	return &stats, true, nil
}

func (c *Cache) Set(ctx context.Context, stats *models.EventStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats for event %d: %w", stats.EventID, err)
	}
	if err := c.Client.Set(ctx, statsKey(stats.EventID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("set stats for event %d: %w", stats.EventID, err)
	}
	return nil
}

// Invalidate drops the event's cached stats. A missing key is not an error.
func (c *Cache) Invalidate(ctx context.Context, eventID int64) error {
	if err := c.Client.Del(ctx, statsKey(eventID)).Err(); err != nil {
		return fmt.Errorf("invalidate stats for event %d: %w", eventID, err)
	}
	c.Logger.Debug("CACHE", fmt.Sprintf("Invalidated stats for event %d", eventID))
	return nil
}
