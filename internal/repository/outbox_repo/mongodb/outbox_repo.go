package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"tradeflow/internal/repository/outbox_repo"
)

// mongoOutboxRepository implements the RelayStore contract over a document
// collection. The backend has no equivalent of a locking read, so the fetch
// is a plain query followed by an update; this variant is safe for a single
// relay instance only.
type mongoOutboxRepository struct {
	coll         *mongo.Collection
	pendingLabel string
	logger       *zap.Logger
}

func NewOutboxRepository(db *mongo.Database, collection, pendingLabel string, l *zap.Logger) outbox_repo.RelayStore {
	return &mongoOutboxRepository{
		coll:         db.Collection(collection),
		pendingLabel: pendingLabel,
		logger:       l,
	}
}

type outboxDocument struct {
	ID      string `bson:"_id"`
	Payload []byte `bson:"payload"`
}

func (r *mongoOutboxRepository) FetchNextPending(ctx context.Context) (*outbox_repo.OutboxRow, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})

	var doc outboxDocument
	err := r.coll.FindOne(ctx, bson.M{"status": r.pendingLabel}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to fetch next pending outbox document", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch next pending outbox document: %w", err)
	}

	return &outbox_repo.OutboxRow{ID: doc.ID, Payload: doc.Payload}, nil
}

func (r *mongoOutboxRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "sent_at": time.Now()}}
	if _, err := r.coll.UpdateByID(ctx, id, update); err != nil {
		r.logger.Error("Failed to update outbox document status", zap.String("doc_id", id), zap.Error(err))
		return fmt.Errorf("failed to update outbox document %s to %s: %w", id, status, err)
	}
	r.logger.Debug("Outbox document status updated", zap.String("doc_id", id), zap.String("status", status))
	return nil
}
