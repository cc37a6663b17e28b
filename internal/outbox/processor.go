package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	kafka_infra "tradeflow/internal/infrastructure/kafka"
	"tradeflow/internal/repository/outbox_repo"
)

// Processor relays pending outbox rows to the broker on a fixed delay. One
// row per tick; a row that fails to publish keeps its pending label and is
// retried on the next tick, indefinitely. Concurrent relay instances are
// safe against double-publish only as far as the store's locking read
// allows (see the store implementations).
type Processor struct {
	store        outbox_repo.RelayStore
	producer     kafka_infra.Producer
	topic        string
	sentLabel    string
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewProcessor(
	store outbox_repo.RelayStore,
	producer kafka_infra.Producer,
	topic string,
	sentLabel string,
	pollInterval time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		store:        store,
		producer:     producer,
		topic:        topic,
		sentLabel:    sentLabel,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run ticks until the context is cancelled. The timer is reset only after
// a tick finishes, so ticks never overlap.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Starting outbox relay processor", zap.Duration("poll_interval", p.pollInterval))
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox relay processor stopping.")
			return
		case <-timer.C:
			p.processOnce(ctx)
			timer.Reset(p.pollInterval)
		}
	}
}

func (p *Processor) processOnce(ctx context.Context) {
	row, err := p.store.FetchNextPending(ctx)
	if err != nil {
		p.logger.Error("Failed to fetch pending outbox row", zap.Error(err))
		return
	}
	if row == nil {
		p.logger.Debug("No pending outbox rows.")
		return
	}

	if err := p.producer.Produce(ctx, p.topic, row.Payload); err != nil {
		p.logger.Error("Failed to publish outbox row, left pending for next tick",
			zap.String("row_id", row.ID),
			zap.String("topic", p.topic),
			zap.Error(err))
		return
	}

	if err := p.store.UpdateStatus(ctx, row.ID, p.sentLabel); err != nil {
		p.logger.Error("Published but failed to mark outbox row as sent, it may be republished",
			zap.String("row_id", row.ID), zap.Error(err))
		return
	}

	p.logger.Info("Outbox row relayed", zap.String("row_id", row.ID), zap.String("topic", p.topic))
}
