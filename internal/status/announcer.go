package status

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/stream"
)

// SourceServiceName identifies this pipeline as the authoritative origin of
// status entries. Downstream causal validation treats it specially.
const SourceServiceName = "trade-capture"

// Announcer appends status-transition entries to the primary stream. Queue
// ingestions are keyed by orderId, object-store ingestions by fileId.
type Announcer struct {
	stream    stream.Stream
	streamKey string
	logger    *zap.Logger
}

func NewAnnouncer(s stream.Stream, streamKey string, logger *zap.Logger) *Announcer {
	return &Announcer{stream: s, streamKey: streamKey, logger: logger}
}

func (a *Announcer) AnnounceReceived(ctx context.Context, rawRecordID string, source domain.Source) (string, error) {
	return a.Announce(ctx, rawRecordID, source, "received")
}

func (a *Announcer) Announce(ctx context.Context, rawRecordID string, source domain.Source, statusValue string) (string, error) {
	payload := map[string]string{
		"sourceservice": SourceServiceName,
		"status":        statusValue,
	}
	switch source {
	case domain.SourceObjectStore:
		payload["fileId"] = rawRecordID
	default:
		payload["orderId"] = rawRecordID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal status payload: %w", err)
	}

	id, err := a.stream.Append(ctx, a.streamKey, map[string]string{"payload": string(body)})
	if err != nil {
		return "", fmt.Errorf("failed to append status entry: %w", err)
	}

	a.logger.Info("Status entry appended",
		zap.String("entry_id", id),
		zap.String("record_id", rawRecordID),
		zap.String("status", statusValue))
	return id, nil
}
