package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradeflow/internal/app/ingest"
	"tradeflow/internal/config"
	debug_http "tradeflow/internal/handler/http/debug"
	ingest_http "tradeflow/internal/handler/http/ingest"
	kafka_handler "tradeflow/internal/handler/kafka"
	"tradeflow/internal/inbound"
	"tradeflow/internal/infrastructure/database"
	kafka_infra "tradeflow/internal/infrastructure/kafka"
	"tradeflow/internal/infrastructure/mongodb"
	"tradeflow/internal/outbox"
	history_pg "tradeflow/internal/repository/history_repo/postgres"
	"tradeflow/internal/repository/outbox_repo"
	outbox_mongo "tradeflow/internal/repository/outbox_repo/mongodb"
	outbox_pg "tradeflow/internal/repository/outbox_repo/postgres"
	rawrecord_pg "tradeflow/internal/repository/rawrecord_repo/postgres"
	"tradeflow/internal/status"
	"tradeflow/internal/stream"
)

func ensureKafkaTopics(ctx context.Context, brokerURLs []string, topics []string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topicConfigs := make([]kafka.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}

	if err := controllerConn.CreateTopics(topicConfigs...); err != nil {
		if err == kafka.TopicAlreadyExists {
			logger.Info("One or more Kafka topics already exist, skipping creation.")
		} else {
			return fmt.Errorf("failed to create Kafka topics: %w", err)
		}
	} else {
		logger.Info("Kafka topics ensured successfully.", zap.Strings("topics", topics))
	}

	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Tradeflow service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		}
	}()

	appLogger.Info("Running database migrations...")
	m, err := migrate.New(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString())
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	statusStream := stream.NewRedisStream(redisClient)
	appLogger.Info("Connected to Redis.", zap.String("addr", cfg.RedisAddr))

	kafkaBrokers := cfg.GetKafkaBrokers()
	requiredTopics := []string{
		cfg.KafkaOrderDataTopic,
		cfg.KafkaOutboxTopic,
	}

	topicCtx, topicCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer topicCancel()
	if err := ensureKafkaTopics(topicCtx, kafkaBrokers, requiredTopics, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	rawRepo := rawrecord_pg.NewRawRecordRepository(db, appLogger.With(zap.String("component", "RawRecordRepository")))
	outboxRepo := outbox_pg.NewOutboxRepository(db, cfg.OutboxTable, cfg.OutboxPendingLabel,
		appLogger.With(zap.String("component", "OutboxRepository")))
	historyRepo := history_pg.NewHistoryRepository(db, appLogger.With(zap.String("component", "HistoryRepository")))

	var relayStore outbox_repo.RelayStore = outboxRepo
	if cfg.OutboxBackend == config.BackendMongo {
		mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoClient, err := mongodb.NewMongoClient(mongoCtx, cfg.MongoURI)
		mongoCancel()
		if err != nil {
			appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				appLogger.Error("Error disconnecting MongoDB client", zap.Error(err))
			}
		}()
		relayStore = outbox_mongo.NewOutboxRepository(
			mongoClient.Database(cfg.MongoDatabase), cfg.OutboxTable, cfg.OutboxPendingLabel,
			appLogger.With(zap.String("component", "MongoOutboxRepository")))
		appLogger.Info("Outbox relay using MongoDB backend.", zap.String("collection", cfg.OutboxTable))
	}

	announcer := status.NewAnnouncer(statusStream, cfg.StreamKey,
		appLogger.With(zap.String("component", "StatusAnnouncer")))

	ingestService := ingest.NewIngestService(db, rawRepo, outboxRepo, announcer,
		appLogger.With(zap.String("component", "IngestService")))
	appLogger.Info("Ingest service initialized.")

	inboundQueue := inbound.NewQueue()
	drainer := inbound.NewDrainer(inboundQueue, ingestService, cfg.InboundDrainInterval,
		appLogger.With(zap.String("component", "InboundDrainer")))

	orderDataHandler := kafka_handler.OrderDataMessageHandler(inboundQueue,
		appLogger.With(zap.String("component", "OrderDataHandler")))
	orderDataConsumer := kafka_infra.NewConsumer(
		kafkaBrokers,
		cfg.KafkaOrderDataTopic,
		cfg.KafkaConsumerGroup,
		orderDataHandler,
		appLogger.With(zap.String("component", "OrderDataConsumer")),
	)

	kafkaProducer := kafka_infra.NewProducer(kafkaBrokers,
		appLogger.With(zap.String("component", "KafkaProducer")))
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := outbox.NewProcessor(
		relayStore,
		kafkaProducer,
		cfg.KafkaOutboxTopic,
		cfg.OutboxSentLabel,
		cfg.OutboxPollInterval,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)
	appLogger.Info("Outbox relay processor initialized.")

	statusConsumer := status.NewConsumer(
		statusStream,
		historyRepo,
		cfg.StreamKey,
		cfg.DeadLetterStream,
		cfg.StreamGroup,
		cfg.StreamConsumerName,
		appLogger.With(zap.String("component", "StatusStreamConsumer")),
	)
	appLogger.Info("Status stream consumer initialized.")

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	ingest_http.RegisterRoutes(router, ingestService, appLogger.With(zap.String("component", "IngestHandler")))
	debug_http.RegisterRoutes(router, statusStream, cfg.StreamKey, appLogger.With(zap.String("component", "DebugHandler")))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	ctxMain, cancelMain := context.WithCancel(context.Background())

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go drainer.Run(ctxMain)
	go outboxProcessor.Run(ctxMain)
	go statusConsumer.Run(ctxMain)

	go func() {
		if err := orderDataConsumer.Consume(ctxMain); err != nil && err != context.Canceled {
			appLogger.Error("Order data Kafka consumer failed", zap.Error(err))
		}
		appLogger.Info("Order data Kafka consumer stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	if err := orderDataConsumer.Close(); err != nil {
		appLogger.Error("Error closing order data Kafka consumer", zap.Error(err))
	}

	// Give background loops a moment to observe cancellation.
	time.Sleep(2 * time.Second)

	appLogger.Info("Application gracefully shut down.")
}
