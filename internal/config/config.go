package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Service  string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Booking  BookingConfig
	Log      LogConfig
	QRSecret string
}

type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	Driver         string // "postgres" or "sqlite"
	PostgresDSN    string
	SQLiteDSN      string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectRetries int
	RetryDelay     time.Duration
	AutoMigrate    bool
}

type RedisConfig struct {
	Addr     string
	Enabled  bool
	StatsTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	// GroupID is the consumer group of the stats invalidation consumer.
	GroupID string
	Topics  TopicConfig
}

type TopicConfig struct {
	BookingReserved  string
	BookingConfirmed string
	BookingCancelled string
	TicketUsed       string
	SeatStatus       string
}

// All returns every configured topic name.
func (t TopicConfig) All() []string {
	return []string{t.BookingReserved, t.BookingConfirmed, t.BookingCancelled, t.TicketUsed, t.SeatStatus}
}

type AuthConfig struct {
	JWTSecret  string
	OIDCIssuer string
}

type BookingConfig struct {
	MaxSeatsPerBooking int
	HoldTTL            time.Duration
	SweepInterval      time.Duration
	HoldExpiryEnabled  bool
	AllowPastCancel    bool
}

type LogConfig struct {
	Level string
	Dir   string
}

func Load() *Config {
	return &Config{
		Service: getEnv("SERVICE_NAME", "ms-booking"),
		Server: ServerConfig{
			Port:               getEnv("PORT", ":8084"),
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    5 * time.Second,
			CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			PostgresDSN:    getEnv("POSTGRES_DSN", ""),
			SQLiteDSN:      getEnv("SQLITE_DSN", "file:booking.db?cache=shared"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
			RetryDelay:     2 * time.Second,
			AutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			StatsTTL: time.Duration(getEnvInt("STATS_CACHE_TTL_SECONDS", 10)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			GroupID: getEnv("KAFKA_GROUP_ID", "ms-booking-stats"),
			Topics: TopicConfig{
				BookingReserved:  getEnv("KAFKA_TOPIC_BOOKING_RESERVED", "booking.reserved"),
				BookingConfirmed: getEnv("KAFKA_TOPIC_BOOKING_CONFIRMED", "booking.confirmed"),
				BookingCancelled: getEnv("KAFKA_TOPIC_BOOKING_CANCELLED", "booking.cancelled"),
				TicketUsed:       getEnv("KAFKA_TOPIC_TICKET_USED", "ticket.used"),
				SeatStatus:       getEnv("KAFKA_TOPIC_SEAT_STATUS", "seats.status"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
		Booking: BookingConfig{
			MaxSeatsPerBooking: getEnvInt("BOOKING_MAX_SEATS", 10),
			HoldTTL:            time.Duration(getEnvInt("HOLD_TTL_MINUTES", 15)) * time.Minute,
			SweepInterval:      time.Duration(getEnvInt("HOLD_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			HoldExpiryEnabled:  getEnvBool("HOLD_EXPIRY_ENABLED", true),
			AllowPastCancel:    getEnvBool("BOOKING_ALLOW_PAST_CANCEL", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
			Dir:   getEnv("LOG_DIR", ""),
		},
		QRSecret: getEnv("QR_SECRET", "change-me"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
