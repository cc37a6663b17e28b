package inbound

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

type Ingester interface {
	Ingest(ctx context.Context, payload []byte, source domain.Source) (*domain.RawRecord, error)
}

// Drainer empties the inbound queue on a fixed delay, running ingestion
// sequentially on its own goroutine. A crash between Poll and commit loses
// the item; recovery relies on the upstream transport's redelivery.
type Drainer struct {
	queue    *Queue
	ingester Ingester
	interval time.Duration
	logger   *zap.Logger
}

func NewDrainer(queue *Queue, ingester Ingester, interval time.Duration, logger *zap.Logger) *Drainer {
	return &Drainer{
		queue:    queue,
		ingester: ingester,
		interval: interval,
		logger:   logger,
	}
}

func (d *Drainer) Run(ctx context.Context) {
	d.logger.Info("Starting inbound drainer", zap.Duration("interval", d.interval))
	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Inbound drainer stopping.", zap.Int("left_in_buffer", d.queue.Len()))
			return
		case <-timer.C:
			d.drain(ctx)
			timer.Reset(d.interval)
		}
	}
}

func (d *Drainer) drain(ctx context.Context) {
	for {
		payload, ok := d.queue.Poll()
		if !ok {
			return
		}
		if _, err := d.ingester.Ingest(ctx, payload, domain.SourceQueue); err != nil {
			if errors.Is(err, domain.ErrDuplicateContent) {
				d.logger.Warn("Dropped duplicate inbound payload", zap.Error(err))
				continue
			}
			d.logger.Error("Failed to ingest inbound payload", zap.Error(err))
		}
	}
}
