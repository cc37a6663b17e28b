package status

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/repository/history_repo"
	"tradeflow/internal/stream"
)

const (
	maxDeliveryAttempts = 5
	reclaimMinIdle      = 30 * time.Second
	readBatchSize       = 10
	readBlock           = 5 * time.Second
	pendingBatchSize    = 50
	errorBackoff        = 2 * time.Second
)

// Consumer reads status entries for one consumer identity within a group,
// reconstructs causally ordered state history, and acknowledges-and-deletes
// entries it has persisted. Entries that fail processing stay pending and
// are redelivered by the reclaim pass; entries delivered five times without
// acknowledgment are moved to the dead-letter stream.
type Consumer struct {
	stream       stream.Stream
	history      history_repo.HistoryRepository
	streamKey    string
	dlqKey       string
	group        string
	consumerName string
	logger       *zap.Logger
}

func NewConsumer(
	s stream.Stream,
	history history_repo.HistoryRepository,
	streamKey, dlqKey, group, consumerName string,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		stream:       s,
		history:      history,
		streamKey:    streamKey,
		dlqKey:       dlqKey,
		group:        group,
		consumerName: consumerName,
		logger:       logger,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("Starting status stream consumer",
		zap.String("stream", c.streamKey),
		zap.String("group", c.group),
		zap.String("consumer", c.consumerName))

	groupReady := false
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Status stream consumer stopping.")
			return
		default:
		}

		if !groupReady {
			if err := c.stream.EnsureGroup(ctx, c.streamKey, c.group); err != nil {
				c.logger.Error("Failed to ensure consumer group", zap.Error(err))
				c.sleep(ctx, errorBackoff)
				continue
			}
			groupReady = true
		}

		c.reclaimPending(ctx)

		entries, err := c.stream.ReadGroup(ctx, c.streamKey, c.group, c.consumerName, readBatchSize, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Error while reading stream", zap.Error(err))
			c.sleep(ctx, errorBackoff)
			continue
		}

		for _, entry := range entries {
			c.handleWithAck(ctx, entry)
		}
	}
}

// reclaimPending inspects claimed-but-unacknowledged entries for the whole
// group. Entries past the delivery cap go straight to the dead letter;
// entries idle long enough are claimed by this consumer and reprocessed.
func (c *Consumer) reclaimPending(ctx context.Context) {
	pending, err := c.stream.Pending(ctx, c.streamKey, c.group, pendingBatchSize)
	if err != nil {
		c.logger.Error("Failed to list pending entries", zap.Error(err))
		return
	}

	var toClaim []string
	for _, p := range pending {
		if p.Deliveries >= maxDeliveryAttempts {
			c.deadLetter(ctx, p.ID, p.Deliveries, "exceeded max delivery attempts")
			continue
		}
		if p.Idle >= reclaimMinIdle {
			toClaim = append(toClaim, p.ID)
		}
	}

	if len(toClaim) == 0 {
		return
	}

	claimed, err := c.stream.Claim(ctx, c.streamKey, c.group, c.consumerName, reclaimMinIdle, toClaim)
	if err != nil {
		c.logger.Error("Failed to claim idle entries", zap.Error(err))
		return
	}

	for _, entry := range claimed {
		c.handleWithAck(ctx, entry)
	}
}

func (c *Consumer) handleWithAck(ctx context.Context, entry stream.Entry) {
	if err := c.processEntry(ctx, entry); err != nil {
		c.logger.Warn("Processing failed, entry left pending for redelivery",
			zap.String("entry_id", entry.ID), zap.Error(err))
		return
	}

	if err := c.stream.Ack(ctx, c.streamKey, c.group, entry.ID); err != nil {
		c.logger.Error("Failed to ack entry", zap.String("entry_id", entry.ID), zap.Error(err))
		return
	}
	if err := c.stream.Delete(ctx, c.streamKey, entry.ID); err != nil {
		c.logger.Error("Failed to delete acked entry", zap.String("entry_id", entry.ID), zap.Error(err))
	}
}

// deadLetter appends a terminal entry to the dead-letter stream carrying
// the original id, reason, attempt count, and a best-effort copy of the
// original payload, then acknowledges and deletes the original so it is
// never simultaneously dead-lettered and pending.
func (c *Consumer) deadLetter(ctx context.Context, entryID string, attempts int64, reason string) {
	values := map[string]string{
		"failed_record_id": entryID,
		"reason":           reason,
		"attempts":         strconv.FormatInt(attempts, 10),
	}

	original, err := c.stream.Get(ctx, c.streamKey, entryID)
	if err != nil {
		c.logger.Error("Failed to read original entry for dead letter", zap.String("entry_id", entryID), zap.Error(err))
	} else if original != nil {
		if body, err := json.Marshal(original.Values); err == nil {
			values["stream_payload"] = string(body)
		}
	}

	if _, err := c.stream.Append(ctx, c.dlqKey, values); err != nil {
		c.logger.Error("Failed to append dead-letter entry", zap.String("entry_id", entryID), zap.Error(err))
		return
	}

	if err := c.stream.Ack(ctx, c.streamKey, c.group, entryID); err != nil {
		c.logger.Error("Failed to ack dead-lettered entry", zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	if err := c.stream.Delete(ctx, c.streamKey, entryID); err != nil {
		c.logger.Error("Failed to delete dead-lettered entry", zap.String("entry_id", entryID), zap.Error(err))
	}

	c.logger.Warn("Entry moved to dead-letter stream",
		zap.String("entry_id", entryID),
		zap.Int64("attempts", attempts),
		zap.String("reason", reason))
}

func (c *Consumer) processEntry(ctx context.Context, entry stream.Entry) error {
	raw, ok := entry.Values["payload"]
	if !ok {
		return fmt.Errorf("%w: entry %s has no payload field", domain.ErrMalformedPayload, entry.ID)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("%w: entry %s: %v", domain.ErrMalformedPayload, entry.ID, err)
	}

	sourceService := stringField(payload, sourceServiceAliases...)
	statusValue := stringField(payload, statusAliases...)
	fileID := stringField(payload, fileIDAliases...)
	orderID := stringField(payload, orderIDAliases...)
	distributorID, hasDistributor := intField(payload, distributorIDAliases...)

	if statusValue == "" || sourceService == "" {
		return fmt.Errorf("%w: entry %s is missing status or sourceservice", domain.ErrMissingIdentifiers, entry.ID)
	}

	if err := c.validateIdentifiers(ctx, entry.ID, sourceService, fileID, orderID, hasDistributor); err != nil {
		return err
	}

	eventTime, err := eventTimeFromID(entry.ID)
	if err != nil {
		return fmt.Errorf("%w: entry %s: %v", domain.ErrMalformedPayload, entry.ID, err)
	}

	previousState, err := c.findPreviousState(ctx, fileID, orderID, distributorID, hasDistributor)
	if err != nil {
		return err
	}

	row := &domain.OrderStateHistory{
		FileID:        optional(fileID),
		OrderID:       optional(orderID),
		PreviousState: previousState,
		CurrentState:  statusValue,
		SourceService: sourceService,
		EventTime:     eventTime,
	}
	if hasDistributor {
		row.DistributorID = &distributorID
	}

	if err := c.history.Create(ctx, row); err != nil {
		return err
	}

	prev := "null"
	if previousState != nil {
		prev = *previousState
	}
	c.logger.Info("State transition recorded",
		zap.String("entry_id", entry.ID),
		zap.String("file_id", fileID),
		zap.String("order_id", orderID),
		zap.String("transition", prev+" -> "+statusValue),
		zap.String("source_service", sourceService))
	return nil
}

// validateIdentifiers enforces the causal contract: trade-capture entries
// only need one identifier, everything else must reference an identifier
// already recorded by a prior trade-capture row.
func (c *Consumer) validateIdentifiers(ctx context.Context, entryID, sourceService, fileID, orderID string, hasDistributor bool) error {
	if strings.EqualFold(sourceService, SourceServiceName) {
		if fileID == "" && orderID == "" {
			return fmt.Errorf("%w: trade-capture entry %s requires orderId or fileId", domain.ErrMissingIdentifiers, entryID)
		}
		return nil
	}

	if orderID == "" || !hasDistributor {
		return fmt.Errorf("%w: orderId and distributorId are required for service %s (entry %s)",
			domain.ErrMissingIdentifiers, sourceService, entryID)
	}

	if fileID == "" {
		prior, err := c.history.LatestByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if prior == nil {
			return fmt.Errorf("%w: orderId %s not seen yet (entry %s)", domain.ErrOutOfOrder, orderID, entryID)
		}
		return nil
	}

	exists, err := c.history.ExistsByFileID(ctx, fileID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: fileId %s not recorded yet for order %s (entry %s)",
			domain.ErrOutOfOrder, fileID, orderID, entryID)
	}
	return nil
}

// findPreviousState resolves the most specific prior match: exact fileId,
// then (orderId, distributorId), then orderId alone. Within a rule the most
// recent eventTime wins.
func (c *Consumer) findPreviousState(ctx context.Context, fileID, orderID string, distributorID int, hasDistributor bool) (*string, error) {
	var last *domain.OrderStateHistory
	var err error

	switch {
	case fileID != "":
		last, err = c.history.LatestByFileID(ctx, fileID)
	case orderID != "" && hasDistributor:
		last, err = c.history.LatestByOrderAndDistributor(ctx, orderID, distributorID)
		if err == nil && last == nil {
			last, err = c.history.LatestByOrderID(ctx, orderID)
		}
	case orderID != "":
		last, err = c.history.LatestByOrderID(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}
	state := last.CurrentState
	return &state, nil
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// eventTimeFromID derives the event time from the millisecond timestamp
// embedded in the entry id, so history ordering tracks stream ordering
// regardless of processing delay.
func eventTimeFromID(id string) (time.Time, error) {
	part, _, found := strings.Cut(id, "-")
	if !found {
		part = id
	}
	millis, err := strconv.ParseInt(part, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stream entry id %q", id)
	}
	return time.UnixMilli(millis), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
