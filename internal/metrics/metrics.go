// Package metrics provides Prometheus metrics for the timekeeper daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/timekeeper/internal/logic"
)

var (
	// EventsTotal counts controller events by type.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timekeeper_events_total",
		Help: "Total number of control events, by type.",
	}, []string{"type"})

	// WifiConnected is 1 while the device is associated.
	WifiConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timekeeper_wifi_connected",
		Help: "Whether the device is associated with its access point (1) or not (0).",
	})

	// WifiState exposes the connectivity state as a labelled 0/1 gauge.
	WifiState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timekeeper_wifi_state",
		Help: "Current connectivity state (1 for the active state).",
	}, []string{"state"})

	// SyncState exposes the time-sync state as a labelled 0/1 gauge.
	SyncState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timekeeper_sync_state",
		Help: "Current time-sync state (1 for the active state).",
	}, []string{"state"})

	// SyncSuccesses is the number of successful time syncs since startup.
	SyncSuccesses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timekeeper_sync_successes",
		Help: "Successful time syncs since startup.",
	})

	// LastSyncTimestamp is the Unix time applied by the last successful sync.
	LastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timekeeper_last_sync_timestamp_seconds",
		Help: "Unix time applied by the last successful time sync.",
	})

	// PublishErrorsTotal counts failed MQTT publishes.
	PublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timekeeper_publish_errors_total",
		Help: "Total number of failed MQTT publishes.",
	})
)

var (
	wifiStates = []string{"DISCONNECTED", "CONNECTING", "CONNECTED", "DISCONNECT_WAIT", "ERROR_TIMEOUT"}
	syncStates = []string{"IDLE", "STARTED", "COMPLETE", "TIMEOUT_ERROR"}
)

// RecordEvent increments the event counter.
func RecordEvent(e logic.Event) {
	EventsTotal.WithLabelValues(string(e.Type)).Inc()
}

// RecordPublishError increments the publish error counter.
func RecordPublishError() {
	PublishErrorsTotal.Inc()
}

// Status is the subset of controller state exported as gauges.
type Status struct {
	Wifi      string
	Connected bool
	Sync      string
	Syncs     int
	LastSync  int64 // Unix seconds, 0 if never synced
}

// SetStatus updates all state gauges.
func SetStatus(s Status) {
	setOneHot(WifiState, wifiStates, s.Wifi)
	setOneHot(SyncState, syncStates, s.Sync)
	if s.Connected {
		WifiConnected.Set(1)
	} else {
		WifiConnected.Set(0)
	}
	SyncSuccesses.Set(float64(s.Syncs))
	if s.LastSync > 0 {
		LastSyncTimestamp.Set(float64(s.LastSync))
	}
}

func setOneHot(g *prometheus.GaugeVec, states []string, active string) {
	for _, s := range states {
		v := 0.0
		if s == active {
			v = 1
		}
		g.WithLabelValues(s).Set(v)
	}
}
