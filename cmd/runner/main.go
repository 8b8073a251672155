package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/the-deep-nlp/nlp-modules-utils/configs"
	"github.com/the-deep-nlp/nlp-modules-utils/db"
	"github.com/the-deep-nlp/nlp-modules-utils/internal/delivery"
	"github.com/the-deep-nlp/nlp-modules-utils/internal/domain"
	"github.com/the-deep-nlp/nlp-modules-utils/internal/rabbitmq"
	"github.com/the-deep-nlp/nlp-modules-utils/internal/redis"
	"github.com/the-deep-nlp/nlp-modules-utils/pkg/callback"
	"github.com/the-deep-nlp/nlp-modules-utils/pkg/s3store"
	"github.com/the-deep-nlp/nlp-modules-utils/pkg/taskstatus"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
)

var rabbitIsReady, redisIsReady bool

func main() {
	cfg := configs.InitConfig()

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	d, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, cfg.Database.ToMigrationUri())
	if err != nil {
		log.Fatal(err)
	}

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
	}
	slog.Info("Migrations ran successfully")

	ctx := context.Background()

	rabbitClient, err := rabbitmq.NewClient(ctx, cfg.RabbitMQ.ToRabbitConnectionUri(), cfg.RabbitMQ.DeliveriesQueueName)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err = rabbitClient.Close(); err != nil {
			slog.Error("An error occurred while closing RabbitMQ connection", "error", err.Error())
		}
	}()
	rabbitIsReady = true
	slog.Info("RabbitMQ connection has been initialized successfully")

	redisClient, err := redis.NewClient(cfg.Redis.ToRedisConnectionUri())
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err = redisClient.Close(); err != nil {
			slog.Error("An error occurred while closing Redis connection", "error", err.Error())
		}
	}()
	redisIsReady = true
	slog.Info("Redis connection has been initialized successfully")

	store, err := s3store.NewClient(ctx, cfg.AWS.Region, nil)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("S3 client has been initialized successfully")

	database := taskstatus.NewDatabase(
		cfg.Database.Endpoint,
		cfg.Database.Database,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Port,
		nil,
	)
	notifier := callback.NewNotifier(&http.Client{Timeout: cfg.Callback.Timeout()}, nil)
	pipeline := delivery.NewPipeline(
		database,
		store,
		notifier,
		taskstatus.NewUpdater(nil),
		cfg.AWS.Bucket,
		cfg.Database.ResultsTable,
		cfg.Database.RetriesTable,
		cfg.AWS.SignedURLExpiry(),
		nil,
	)

	handlerFunc := func(input string) {
		msg := domain.ResultDelivery{}
		if err := json.Unmarshal([]byte(input), &msg); err != nil {
			slog.Error("There was an error in unmarshalling the delivery message", "error", err)
			return
		}
		slog.Info("Result delivery is picked up from the queue", "unique_id", msg.UniqueID)

		// A result cannot be delivered simultaneously via two runners
		lockKey := "delivery:" + msg.UniqueID
		isLocked, err := redisClient.Lock(ctx, lockKey, 30*time.Second)
		if err != nil {
			slog.Error("Error occurred while locking the key for delivery", "lock_key", lockKey, "error", err.Error())
			return
		}
		if !isLocked {
			slog.Error("Concurrent delivery detected, ignoring the message", "unique_id", msg.UniqueID)
			return
		}
		defer func() {
			if err = redisClient.Unlock(ctx, lockKey); err != nil {
				slog.Error("Error while unlocking locked key", "lock_key", lockKey, "err", err.Error())
			}
		}()

		pipeline.Deliver(ctx, msg)
	}

	consumerName := "delivery-runner"
	if len(os.Args) > 1 {
		consumerName = consumerName + ":" + os.Args[1]
	}
	if err := rabbitClient.ConsumeMessages(consumerName, handlerFunc); err != nil {
		log.Fatalf("Failed to start consuming messages: %v", err)
	}
	slog.Info("Consumer is created successfully", "queue_name", cfg.RabbitMQ.DeliveriesQueueName, "consumer_name", consumerName)

	go setUpHealthCheckerAPIs(ctx, cfg, database, rabbitClient, redisClient)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	slog.Info("Runner is running. To exit press CTRL+C")
	<-sigChan
	slog.Info("Runner is shutting down...")
}

func setUpHealthCheckerAPIs(ctx context.Context, cfg *configs.Config, database *taskstatus.Database, queue domain.Queue, lock domain.DistributedLock) {
	r := gin.Default()
	r.GET("/readiness", func(c *gin.Context) {
		if rabbitIsReady && redisIsReady {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		}
	})
	r.GET("/liveness", func(c *gin.Context) {
		if err := database.Ping(c); err != nil {
			slog.Error("Postgresql seem not to be pingable in liveness API", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		if !queue.IsHealthy() {
			slog.Error("Rabbit is not healthy")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		if err := lock.Ping(c); err != nil {
			slog.Error("Redis seem not to be pingable in liveness API", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not healthy"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "up"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("Starting health server on port %s\n", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down health server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Health server forced to shutdown:", err)
	}
}
