package kafka_handler

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tradeflow/internal/inbound"
	kafka_infra "tradeflow/internal/infrastructure/kafka"
)

// OrderDataMessageHandler enqueues raw order payloads into the inbound
// buffer. Ingestion never runs inline on the consumer callback; the drainer
// picks items up on its own cadence.
func OrderDataMessageHandler(queue *inbound.Queue, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, message kafka.Message) error {
		queue.Push(message.Value)
		logger.Debug("Buffered inbound order payload",
			zap.Int("size_bytes", len(message.Value)),
			zap.Int("buffer_depth", queue.Len()))
		return nil
	}
}
