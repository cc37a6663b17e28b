package ingest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

// Minimal sql driver stub: the repositories below are fakes, so only the
// transaction lifecycle goes through database/sql.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var registerOnce sync.Once

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	registerOnce.Do(func() { sql.Register("ingeststub", stubDriver{}) })
	db, err := sql.Open("ingeststub", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeRawRepo struct {
	fingerprints map[string]bool
	created      []*domain.RawRecord
}

func (f *fakeRawRepo) CreateTx(_ context.Context, _ *sql.Tx, rec *domain.RawRecord) error {
	if f.fingerprints[rec.Fingerprint] {
		return domain.ErrDuplicateContent
	}
	f.fingerprints[rec.Fingerprint] = true
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeRawRepo) ExistsByFingerprint(_ context.Context, fingerprint string) (bool, error) {
	return f.fingerprints[fingerprint], nil
}

type fakeOutboxRepo struct {
	created  []*domain.OutboxEvent
	advanced []string
}

func (f *fakeOutboxRepo) CreateEventTx(_ context.Context, _ *sql.Tx, evt *domain.OutboxEvent) error {
	f.created = append(f.created, evt)
	return nil
}

func (f *fakeOutboxRepo) AdvanceEventStatus(_ context.Context, id string, from, to domain.OutboxEventStatus) error {
	f.advanced = append(f.advanced, id+":"+string(from)+"->"+string(to))
	for _, evt := range f.created {
		if evt.ID == id && evt.Status == from {
			evt.Status = to
		}
	}
	return nil
}

type fakeAnnouncer struct {
	calls int
	err   error
}

func (f *fakeAnnouncer) AnnounceReceived(context.Context, string, domain.Source) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "1700000000000-0", nil
}

func newTestService(t *testing.T, announcer *fakeAnnouncer) (IngestService, *fakeRawRepo, *fakeOutboxRepo) {
	rawRepo := &fakeRawRepo{fingerprints: map[string]bool{}}
	outboxRepo := &fakeOutboxRepo{}
	svc := NewIngestService(newStubDB(t), rawRepo, outboxRepo, announcer, zap.NewNop())
	return svc, rawRepo, outboxRepo
}

func TestIngestCreatesRawRecordAndOutboxEvent(t *testing.T) {
	announcer := &fakeAnnouncer{}
	svc, rawRepo, outboxRepo := newTestService(t, announcer)

	rec, err := svc.Ingest(context.Background(), []byte("ORDER1"), domain.SourceQueue)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Len(t, rawRepo.created, 1)
	assert.Equal(t, domain.SourceQueue, rawRepo.created[0].Source)
	assert.Equal(t, Fingerprint([]byte("ORDER1")), rawRepo.created[0].Fingerprint)

	require.Len(t, outboxRepo.created, 1)
	evt := outboxRepo.created[0]
	assert.Equal(t, rec.ID, evt.RawRecordID)
	assert.Equal(t, "OrderReceivedEvent", evt.EventType)

	// Announcement succeeded, so the event moved NEW -> PENDING.
	assert.Equal(t, 1, announcer.calls)
	assert.Equal(t, domain.OutboxStatusPending, evt.Status)
}

func TestIngestRejectsDuplicateContent(t *testing.T) {
	svc, rawRepo, _ := newTestService(t, &fakeAnnouncer{})

	_, err := svc.Ingest(context.Background(), []byte("SAME PAYLOAD"), domain.SourceQueue)
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), []byte("SAME PAYLOAD"), domain.SourceObjectStore)
	assert.ErrorIs(t, err, domain.ErrDuplicateContent)
	assert.Len(t, rawRepo.created, 1, "second ingest must not write a raw record")
}

func TestIngestKeepsEventNewWhenAnnouncementFails(t *testing.T) {
	announcer := &fakeAnnouncer{err: errors.New("stream unreachable")}
	svc, _, outboxRepo := newTestService(t, announcer)

	rec, err := svc.Ingest(context.Background(), []byte("ORDER2"), domain.SourceQueue)
	require.NoError(t, err, "a failed announcement must not fail the ingestion")
	require.NotNil(t, rec)

	require.Len(t, outboxRepo.created, 1)
	assert.Equal(t, domain.OutboxStatusNew, outboxRepo.created[0].Status)
	assert.Empty(t, outboxRepo.advanced)
}

func TestFingerprintIsStableAndDistinct(t *testing.T) {
	a := Fingerprint([]byte("payload-a"))
	b := Fingerprint([]byte("payload-b"))

	assert.Equal(t, a, Fingerprint([]byte("payload-a")))
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64, "hex sha256")
}
