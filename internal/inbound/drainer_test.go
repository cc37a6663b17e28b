package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

type recordingIngester struct {
	payloads []string
	sources  []domain.Source
	errs     map[string]error
}

func (r *recordingIngester) Ingest(_ context.Context, payload []byte, source domain.Source) (*domain.RawRecord, error) {
	r.payloads = append(r.payloads, string(payload))
	r.sources = append(r.sources, source)
	if err, ok := r.errs[string(payload)]; ok {
		return nil, err
	}
	return &domain.RawRecord{ID: "rec", Payload: payload, Source: source}, nil
}

func TestDrainerDrainsQueueToEmpty(t *testing.T) {
	q := NewQueue()
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	ingester := &recordingIngester{}
	d := NewDrainer(q, ingester, time.Millisecond, zap.NewNop())
	d.drain(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, ingester.payloads)
	assert.Equal(t, 0, q.Len())
	for _, src := range ingester.sources {
		assert.Equal(t, domain.SourceQueue, src)
	}
}

func TestDrainerContinuesPastErrors(t *testing.T) {
	q := NewQueue()
	q.Push([]byte("dup"))
	q.Push([]byte("broken"))
	q.Push([]byte("fine"))

	ingester := &recordingIngester{errs: map[string]error{
		"dup":    domain.ErrDuplicateContent,
		"broken": errors.New("storage unreachable"),
	}}
	d := NewDrainer(q, ingester, time.Millisecond, zap.NewNop())
	d.drain(context.Background())

	// Every item was attempted despite the failures in between.
	assert.Equal(t, []string{"dup", "broken", "fine"}, ingester.payloads)
	assert.Equal(t, 0, q.Len())
}

func TestDrainerStopsOnContextCancel(t *testing.T) {
	q := NewQueue()
	d := NewDrainer(q, &recordingIngester{}, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drainer did not stop after context cancellation")
	}
}
