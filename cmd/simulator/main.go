package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradeflow/internal/config"
	kafka_infra "tradeflow/internal/infrastructure/kafka"
	"tradeflow/internal/simulator"
)

// Publishes synthetic fixed-width order records to the order-data topic so
// the pipeline can be exercised without a live distributor feed.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	count := 10
	if v, err := strconv.Atoi(os.Getenv("SIMULATOR_ORDER_COUNT")); err == nil && v > 0 {
		count = v
	}
	interval := 500 * time.Millisecond
	if v, err := time.ParseDuration(os.Getenv("SIMULATOR_PUBLISH_INTERVAL")); err == nil && v > 0 {
		interval = v
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Order simulator starting...",
		zap.Int("count", count),
		zap.Duration("interval", interval),
		zap.String("topic", cfg.KafkaOrderDataTopic))

	producer := kafka_infra.NewProducer(cfg.GetKafkaBrokers(),
		logger.With(zap.String("component", "KafkaProducer")))
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	generator := simulator.NewGenerator()
	published := 0
	for _, order := range generator.GenerateRandomOrders(count) {
		if ctx.Err() != nil {
			break
		}
		if err := producer.Produce(ctx, cfg.KafkaOrderDataTopic, []byte(order)); err != nil {
			logger.Error("Failed to publish synthetic order", zap.Error(err))
			continue
		}
		published++
		time.Sleep(interval)
	}

	logger.Info("Order simulator finished.", zap.Int("published", published))
}
