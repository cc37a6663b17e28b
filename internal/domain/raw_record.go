package domain

import "time"

type Source string

const (
	SourceQueue       Source = "QUEUE"
	SourceObjectStore Source = "OBJECT_STORE"
)

// RawRecord is the immutable copy of an inbound payload. Fingerprint is the
// hex sha256 of the payload and is unique across the table; the first writer
// wins on conflict.
type RawRecord struct {
	ID          string
	Source      Source
	Payload     []byte
	Fingerprint string
	ReceivedAt  time.Time
}
