package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "ms-booking", cfg.Service)
	assert.Equal(t, ":8084", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Booking.MaxSeatsPerBooking)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, time.Minute, cfg.Booking.SweepInterval)
	assert.True(t, cfg.Booking.HoldExpiryEnabled)
	assert.False(t, cfg.Booking.AllowPastCancel)
	assert.Len(t, cfg.Kafka.Topics.All(), 5)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOOKING_MAX_SEATS", "4")
	t.Setenv("HOLD_TTL_MINUTES", "30")
	t.Setenv("HOLD_EXPIRY_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg := Load()

	assert.Equal(t, 4, cfg.Booking.MaxSeatsPerBooking)
	assert.Equal(t, 30*time.Minute, cfg.Booking.HoldTTL)
	assert.False(t, cfg.Booking.HoldExpiryEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("BOOKING_MAX_SEATS", "many")
	t.Setenv("REDIS_ENABLED", "perhaps")

	cfg := Load()

	assert.Equal(t, 10, cfg.Booking.MaxSeatsPerBooking)
	assert.True(t, cfg.Redis.Enabled)
}
