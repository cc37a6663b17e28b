package ingest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/repository/outbox_repo"
	"tradeflow/internal/repository/rawrecord_repo"
	"tradeflow/internal/util"
)

const orderReceivedEventType = "OrderReceivedEvent"

type IngestService interface {
	Ingest(ctx context.Context, payload []byte, source domain.Source) (*domain.RawRecord, error)
}

// Announcer publishes a status-transition entry for a freshly ingested
// record and returns the stream entry id.
type Announcer interface {
	AnnounceReceived(ctx context.Context, rawRecordID string, source domain.Source) (string, error)
}

type ingestService struct {
	db         *sql.DB
	rawRepo    rawrecord_repo.RawRecordRepository
	outboxRepo outbox_repo.OutboxEventRepository
	announcer  Announcer
	logger     *zap.Logger
}

func NewIngestService(
	db *sql.DB,
	rawRepo rawrecord_repo.RawRecordRepository,
	outboxRepo outbox_repo.OutboxEventRepository,
	announcer Announcer,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		db:         db,
		rawRepo:    rawRepo,
		outboxRepo: outboxRepo,
		announcer:  announcer,
		logger:     logger,
	}
}

// Ingest fingerprints the payload, rejects repeats, and persists the raw
// record together with its outbox event in one transaction. The status
// announcement after commit is best-effort: if it fails the outbox event
// stays NEW and the failure is only logged.
func (s *ingestService) Ingest(ctx context.Context, payload []byte, source domain.Source) (*domain.RawRecord, error) {
	fingerprint := Fingerprint(payload)

	exists, err := s.rawRepo.ExistsByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate content: %w", err)
	}
	if exists {
		s.logger.Warn("Rejected duplicate payload", zap.String("fingerprint", fingerprint), zap.String("source", string(source)))
		return nil, domain.ErrDuplicateContent
	}

	now := time.Now()
	rec := &domain.RawRecord{
		ID:          util.GenerateUUID(),
		Source:      source,
		Payload:     payload,
		Fingerprint: fingerprint,
		ReceivedAt:  now,
	}
	evt := &domain.OutboxEvent{
		ID:          util.GenerateUUID(),
		RawRecordID: rec.ID,
		Source:      source,
		EventType:   orderReceivedEventType,
		Payload:     payload,
		Status:      domain.OutboxStatusNew,
		CreatedAt:   now,
	}

	if err := s.persist(ctx, rec, evt); err != nil {
		return nil, err
	}

	s.logger.Info("Raw record ingested",
		zap.String("record_id", rec.ID),
		zap.String("source", string(source)),
		zap.String("fingerprint", fingerprint))

	if _, err := s.announcer.AnnounceReceived(ctx, rec.ID, source); err != nil {
		// Deliberate best-effort side call: the event stays NEW and the
		// announcement is not retried here.
		s.logger.Error("Status announcement failed, outbox event stays NEW",
			zap.String("record_id", rec.ID), zap.Error(err))
		return rec, nil
	}

	if err := s.outboxRepo.AdvanceEventStatus(ctx, evt.ID, domain.OutboxStatusNew, domain.OutboxStatusPending); err != nil {
		s.logger.Error("Failed to advance outbox event to PENDING",
			zap.String("event_id", evt.ID), zap.Error(err))
	}

	return rec, nil
}

func (s *ingestService) persist(ctx context.Context, rec *domain.RawRecord, evt *domain.OutboxEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ingestion transaction: %w", err)
	}

	if err := s.rawRepo.CreateTx(ctx, tx, rec); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback ingestion transaction", zap.Error(rbErr))
		}
		return err
	}
	if err := s.outboxRepo.CreateEventTx(ctx, tx, evt); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback ingestion transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingestion transaction: %w", err)
	}
	return nil
}

// Fingerprint is the hex sha256 of the payload content.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
