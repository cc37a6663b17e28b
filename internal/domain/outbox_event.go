package domain

import "time"

type OutboxEventStatus string

const (
	OutboxStatusNew     OutboxEventStatus = "NEW"
	OutboxStatusPending OutboxEventStatus = "PENDING"
	OutboxStatusSent    OutboxEventStatus = "SENT"
)

// OutboxEvent is created in the same transaction as its RawRecord and later
// relayed to the broker. Status only moves forward: NEW -> PENDING -> SENT.
type OutboxEvent struct {
	ID          string
	RawRecordID string
	Source      Source
	EventType   string
	Payload     []byte
	Status      OutboxEventStatus
	CreatedAt   time.Time
	SentAt      *time.Time
}
