package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/availability"
	availability_api "ms-booking/internal/availability/api"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/seats"
	"ms-booking/internal/seats/seat_api"
	"ms-booking/internal/sse"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

// prepareSchema applies the SQL migrations on PostgreSQL and builds the
// tables from the models on SQLite.
func prepareSchema(ctx context.Context, cfg *config.Config, db *bun.DB, log *logger.Logger) error {
	if !cfg.Database.AutoMigrate {
		log.Info("MIGRATE", "Automatic migrations disabled")
		return nil
	}
	if cfg.Database.Driver == database.DriverSQLite {
		log.Info("MIGRATE", "Creating SQLite schema from models")
		return database.CreateSchema(ctx, db)
	}
	// The runner is not closed: closing it would close the shared *sql.DB.
	return migrations.NewRunner(db, migrations.DefaultOptions(), log).RunMigrations()
}

// connectRedis returns a stats cache, or nil when Redis is disabled or
// unreachable. Stats then always come from the database.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, *availability.Cache) {
	if !cfg.Enabled {
		log.Info("REDIS", "Redis disabled, stats cache off")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis at %s unreachable, stats cache off: %v", cfg.Addr, err))
		client.Close()
		return nil, nil
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, client.Options().DB))
	return client, availability.NewCache(client, cfg.StatsTTL, log)
}

func healthHandler(db *bun.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok"}
		status := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				// the cache is optional, so a Redis outage only degrades
				checks["redis"] = err.Error()
			}
		}
		if status != http.StatusOK {
			utils.WriteJSON(w, status, utils.ErrorResponse("Unhealthy", fmt.Sprint(checks)))
			return
		}
		utils.WriteSuccess(w, status, "OK", checks)
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Service: cfg.Service, Level: cfg.Log.Level, Dir: cfg.Log.Dir})
	if err != nil {
		log.Warn("LOGGER", fmt.Sprintf("File logging disabled: %v", err))
	}
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, cfg, bunDB, log); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Schema setup failed: %v", err))
	}

	redisClient, statsCache := connectRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Typed nils must not leak into the interfaces below.
	var invalidator booking.StatsInvalidator
	if statsCache != nil {
		invalidator = statsCache
	}

	emitter := sse.NewBookingEventEmitter()
	publishers := booking.Publishers{emitter}
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		publishers = append(publishers, producer)
		log.Info("KAFKA", "Kafka producer initialized successfully")

		if statsCache != nil {
			consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SeatStatus, cfg.Kafka.GroupID, statsCache, log)
		}
	} else {
		log.Info("KAFKA", "Kafka disabled, lifecycle events go to SSE streams only")
	}

	holdTTL := cfg.Booking.HoldTTL
	if !cfg.Booking.HoldExpiryEnabled {
		holdTTL = 0
	}
	bookingService := booking.NewService(bookingdb.NewUnitOfWork(bunDB), publishers, invalidator, log, booking.Options{
		MaxSeatsPerBooking: cfg.Booking.MaxSeatsPerBooking,
		HoldTTL:            holdTTL,
		AllowPastCancel:    cfg.Booking.AllowPastCancel,
	})
	availabilityService := availability.NewService(bunDB, statsCache, log)

	var seatInvalidator seats.StatsInvalidator
	if statsCache != nil {
		seatInvalidator = statsCache
	}
	seatService := seats.NewService(bunDB, seatInvalidator, log)

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Token verifier setup failed: %v", err))
	}
	qrGen, err := qr.NewQRGenerator(cfg.QRSecret)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("QR generator setup failed: %v", err))
	}

	var sweeper *booking.Sweeper
	if holdTTL > 0 {
		sweeper = booking.NewSweeper(bookingService, cfg.Booking.SweepInterval, log)
		sweeper.Start(ctx)
	}

	consumerDone := make(chan struct{})
	if consumer != nil {
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Stats consumer stopped: %v", err))
			}
		}()
	} else {
		close(consumerDone)
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimitPerMinute, time.Minute))
	r.Use(metrics.Middleware)
	r.Use(logger.RequestLogger(log))

	r.Get("/healthz", healthHandler(bunDB, redisClient))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authn := auth.Middleware(verifier, log)

	availability_api.NewHandler(availabilityService, log).RegisterRoutes(r)
	log.Info("ROUTER", "Public availability routes registered under /api/events/{eventId}")

	booking_api.NewHandler(bookingService, qrGen, log).RegisterRoutes(r, authn)
	log.Info("ROUTER", "Booking routes registered under /api/bookings and /api/events/{eventId}")

	sse.NewHandler(emitter, log).RegisterRoutes(r, authn)
	log.Info("ROUTER", "Seat and booking streams registered")

	seat_api.NewHandler(seatService, log).RegisterRoutes(r, authn)
	log.Info("ROUTER", "Admin routes registered under /api/admin")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()
	stop()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if consumer != nil {
		<-consumerDone
		if err := consumer.Close(); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Closing consumer: %v", err))
		}
	}
	log.Info("APP", "Booking Service shutdown complete")
}
