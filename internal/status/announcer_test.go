package status

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

func TestAnnounceReceivedKeysQueueIngestionsByOrderID(t *testing.T) {
	fs := newFakeStream()
	a := NewAnnouncer(fs, "status-stream", zap.NewNop())

	id, err := a.AnnounceReceived(context.Background(), "raw-123", domain.SourceQueue)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Len(t, fs.entries["status-stream"], 1)
	entry := fs.entries["status-stream"][0]

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(entry.Values["payload"]), &payload))
	assert.Equal(t, "raw-123", payload["orderId"])
	assert.Empty(t, payload["fileId"])
	assert.Equal(t, SourceServiceName, payload["sourceservice"])
	assert.Equal(t, "received", payload["status"])
}

func TestAnnounceReceivedKeysObjectStoreIngestionsByFileID(t *testing.T) {
	fs := newFakeStream()
	a := NewAnnouncer(fs, "status-stream", zap.NewNop())

	_, err := a.AnnounceReceived(context.Background(), "raw-456", domain.SourceObjectStore)
	require.NoError(t, err)

	var payload map[string]string
	entry := fs.entries["status-stream"][0]
	require.NoError(t, json.Unmarshal([]byte(entry.Values["payload"]), &payload))
	assert.Equal(t, "raw-456", payload["fileId"])
	assert.Empty(t, payload["orderId"])
}
