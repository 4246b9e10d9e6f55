package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sweeney/timekeeper/internal/logic"
)

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(EventsTotal.WithLabelValues(string(logic.EventHour)))
	RecordEvent(logic.Event{Timestamp: time.Now(), Type: logic.EventHour})
	RecordEvent(logic.Event{Timestamp: time.Now(), Type: logic.EventHour})
	after := testutil.ToFloat64(EventsTotal.WithLabelValues(string(logic.EventHour)))
	assert.Equal(t, 2.0, after-before)
}

func TestSetStatus(t *testing.T) {
	SetStatus(Status{Wifi: "CONNECTED", Connected: true, Sync: "COMPLETE", Syncs: 3, LastSync: 1767225600})

	assert.Equal(t, 1.0, testutil.ToFloat64(WifiConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(WifiState.WithLabelValues("CONNECTED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(WifiState.WithLabelValues("CONNECTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SyncState.WithLabelValues("COMPLETE")))
	assert.Equal(t, 0.0, testutil.ToFloat64(SyncState.WithLabelValues("STARTED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(SyncSuccesses))
	assert.Equal(t, 1767225600.0, testutil.ToFloat64(LastSyncTimestamp))

	SetStatus(Status{Wifi: "DISCONNECT_WAIT", Sync: "COMPLETE", Syncs: 3})
	assert.Equal(t, 0.0, testutil.ToFloat64(WifiConnected))
	assert.Equal(t, 0.0, testutil.ToFloat64(WifiState.WithLabelValues("CONNECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(WifiState.WithLabelValues("DISCONNECT_WAIT")))
	assert.Equal(t, 1767225600.0, testutil.ToFloat64(LastSyncTimestamp), "unchanged without a new sync")
}

func TestRecordPublishError(t *testing.T) {
	before := testutil.ToFloat64(PublishErrorsTotal)
	RecordPublishError()
	assert.Equal(t, 1.0, testutil.ToFloat64(PublishErrorsTotal)-before)
}
