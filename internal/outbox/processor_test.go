package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tradeflow/internal/repository/outbox_repo"
)

type fakeRelayStore struct {
	rows     []*outbox_repo.OutboxRow
	fetchErr error
	updates  map[string]string
}

func (f *fakeRelayStore) FetchNextPending(context.Context) (*outbox_repo.OutboxRow, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	row := f.rows[0]
	return row, nil
}

func (f *fakeRelayStore) UpdateStatus(_ context.Context, id string, status string) error {
	if f.updates == nil {
		f.updates = map[string]string{}
	}
	f.updates[id] = status
	// Sent rows stop being pending.
	if len(f.rows) > 0 && f.rows[0].ID == id {
		f.rows = f.rows[1:]
	}
	return nil
}

type fakeProducer struct {
	published [][]byte
	err       error
}

func (f *fakeProducer) Produce(_ context.Context, _ string, message []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, message)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func newTestProcessor(store *fakeRelayStore, producer *fakeProducer) *Processor {
	return NewProcessor(store, producer, "order_events", "SENT", 10*time.Millisecond, zap.NewNop())
}

func TestProcessOncePublishesAndMarksSent(t *testing.T) {
	store := &fakeRelayStore{rows: []*outbox_repo.OutboxRow{{ID: "evt-1", Payload: []byte("ORDER1")}}}
	producer := &fakeProducer{}

	newTestProcessor(store, producer).processOnce(context.Background())

	assert.Equal(t, [][]byte{[]byte("ORDER1")}, producer.published)
	assert.Equal(t, "SENT", store.updates["evt-1"])
	assert.Empty(t, store.rows)
}

func TestProcessOnceNoopWhenNothingPending(t *testing.T) {
	store := &fakeRelayStore{}
	producer := &fakeProducer{}

	newTestProcessor(store, producer).processOnce(context.Background())

	assert.Empty(t, producer.published)
	assert.Empty(t, store.updates)
}

func TestProcessOnceLeavesRowPendingOnPublishError(t *testing.T) {
	store := &fakeRelayStore{rows: []*outbox_repo.OutboxRow{{ID: "evt-1", Payload: []byte("ORDER1")}}}
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	p := newTestProcessor(store, producer)

	p.processOnce(context.Background())

	assert.Empty(t, store.updates, "failed publish must not change the row status")
	assert.Len(t, store.rows, 1, "row stays pending for the next tick")

	// Broker recovers: the next tick retries the same row and succeeds.
	producer.err = nil
	p.processOnce(context.Background())
	assert.Equal(t, "SENT", store.updates["evt-1"])
}

func TestProcessOnceSurvivesStoreErrors(t *testing.T) {
	store := &fakeRelayStore{fetchErr: errors.New("storage unreachable")}
	producer := &fakeProducer{}

	// Must not panic or publish anything.
	newTestProcessor(store, producer).processOnce(context.Background())
	assert.Empty(t, producer.published)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeRelayStore{}
	p := newTestProcessor(store, &fakeProducer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop after context cancellation")
	}
}
