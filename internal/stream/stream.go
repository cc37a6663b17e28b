package stream

import (
	"context"
	"time"
)

// Entry is one record read from a durable stream. The ID is opaque but
// monotonically increasing and embeds the creation timestamp in
// milliseconds before the first dash.
type Entry struct {
	ID     string
	Values map[string]string
}

// PendingEntry describes a claimed-but-unacknowledged entry as tracked by
// the stream substrate for a consumer group.
type PendingEntry struct {
	ID         string
	Consumer   string
	Idle       time.Duration
	Deliveries int64
}

// Stream is the set of durable-stream primitives the pipeline relies on:
// append plus the consumer-group claim/acknowledge protocol.
type Stream interface {
	Append(ctx context.Context, key string, values map[string]string) (string, error)
	// EnsureGroup creates the consumer group if missing; an already existing
	// group is not an error.
	EnsureGroup(ctx context.Context, key, group string) error
	// ReadGroup blocks up to block for new entries, delivering at most count.
	ReadGroup(ctx context.Context, key, group, consumer string, count int64, block time.Duration) ([]Entry, error)
	Pending(ctx context.Context, key, group string, count int64) ([]PendingEntry, error)
	// Claim transfers ownership of the given entries to consumer, provided
	// they have been idle at least minIdle. Claiming increments the delivery
	// count.
	Claim(ctx context.Context, key, group, consumer string, minIdle time.Duration, ids []string) ([]Entry, error)
	Ack(ctx context.Context, key, group string, ids ...string) error
	Delete(ctx context.Context, key string, ids ...string) error
	// Get reads a single entry by id; (nil, nil) when it no longer exists.
	Get(ctx context.Context, key, id string) (*Entry, error)
	Len(ctx context.Context, key string) (int64, error)
}
