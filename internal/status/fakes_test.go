package status

import (
	"context"
	"fmt"
	"time"

	"tradeflow/internal/domain"
	"tradeflow/internal/stream"
)

// fakeStream is an in-memory stand-in for the durable stream, shared by the
// announcer and consumer tests.
type fakeStream struct {
	entries   map[string][]stream.Entry
	pending   []stream.PendingEntry
	acked     map[string][]string
	deleted   map[string][]string
	claimed   []string
	appendErr error
	nextSeq   int64
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		entries: map[string][]stream.Entry{},
		acked:   map[string][]string{},
		deleted: map[string][]string{},
	}
}

func (f *fakeStream) put(key, id string, values map[string]string) {
	f.entries[key] = append(f.entries[key], stream.Entry{ID: id, Values: values})
}

func (f *fakeStream) Append(_ context.Context, key string, values map[string]string) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	id := fmt.Sprintf("%d-0", 1700000000000+f.nextSeq)
	f.nextSeq++
	f.put(key, id, values)
	return id, nil
}

func (f *fakeStream) EnsureGroup(context.Context, string, string) error { return nil }

func (f *fakeStream) ReadGroup(context.Context, string, string, string, int64, time.Duration) ([]stream.Entry, error) {
	return nil, nil
}

func (f *fakeStream) Pending(context.Context, string, string, int64) ([]stream.PendingEntry, error) {
	return f.pending, nil
}

func (f *fakeStream) Claim(_ context.Context, key, _, _ string, _ time.Duration, ids []string) ([]stream.Entry, error) {
	var claimed []stream.Entry
	for _, id := range ids {
		f.claimed = append(f.claimed, id)
		for _, e := range f.entries[key] {
			if e.ID == id {
				claimed = append(claimed, e)
			}
		}
	}
	return claimed, nil
}

func (f *fakeStream) Ack(_ context.Context, key, _ string, ids ...string) error {
	f.acked[key] = append(f.acked[key], ids...)
	return nil
}

func (f *fakeStream) Delete(_ context.Context, key string, ids ...string) error {
	f.deleted[key] = append(f.deleted[key], ids...)
	for _, id := range ids {
		kept := f.entries[key][:0]
		for _, e := range f.entries[key] {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		f.entries[key] = kept
	}
	return nil
}

func (f *fakeStream) Get(_ context.Context, key, id string) (*stream.Entry, error) {
	for _, e := range f.entries[key] {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (f *fakeStream) Len(_ context.Context, key string) (int64, error) {
	return int64(len(f.entries[key])), nil
}

// fakeHistoryRepo mirrors the ledger's most-recent-wins query semantics.
type fakeHistoryRepo struct {
	rows      []*domain.OrderStateHistory
	createErr error
}

func (f *fakeHistoryRepo) Create(_ context.Context, row *domain.OrderStateHistory) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *row
	f.rows = append(f.rows, &copied)
	return nil
}

func (f *fakeHistoryRepo) latest(match func(*domain.OrderStateHistory) bool) *domain.OrderStateHistory {
	var best *domain.OrderStateHistory
	for _, row := range f.rows {
		if !match(row) {
			continue
		}
		if best == nil || !row.EventTime.Before(best.EventTime) {
			best = row
		}
	}
	return best
}

func (f *fakeHistoryRepo) LatestByFileID(_ context.Context, fileID string) (*domain.OrderStateHistory, error) {
	return f.latest(func(r *domain.OrderStateHistory) bool {
		return r.FileID != nil && *r.FileID == fileID
	}), nil
}

func (f *fakeHistoryRepo) LatestByOrderAndDistributor(_ context.Context, orderID string, distributorID int) (*domain.OrderStateHistory, error) {
	return f.latest(func(r *domain.OrderStateHistory) bool {
		return r.OrderID != nil && *r.OrderID == orderID &&
			r.DistributorID != nil && *r.DistributorID == distributorID
	}), nil
}

func (f *fakeHistoryRepo) LatestByOrderID(_ context.Context, orderID string) (*domain.OrderStateHistory, error) {
	return f.latest(func(r *domain.OrderStateHistory) bool {
		return r.OrderID != nil && *r.OrderID == orderID
	}), nil
}

func (f *fakeHistoryRepo) ExistsByFileID(_ context.Context, fileID string) (bool, error) {
	row, _ := f.LatestByFileID(context.Background(), fileID)
	return row != nil, nil
}
