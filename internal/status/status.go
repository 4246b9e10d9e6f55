// Package status provides a thread-safe status tracker for the timekeeper daemon.
// It is written by the run loop and read by HTTP handlers and MQTT
// lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/timekeeper/internal/logic"
)

// NetworkInfo describes the wireless interface.
type NetworkInfo struct {
	Interface string
	IP        string
	SSID      string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	NTPServer   string
	ClockMode   string
}

// Control is the control core's state as seen by the run loop.
type Control struct {
	Wifi         string
	Sync         string
	SyncComplete bool
	SyncAttempts int
	LastSync     time.Time
	DeviceTime   time.Time
	Counts       logic.EventCounts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Control
	BootID        string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, boot id and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the control state. Called from the run loop every second.
func (t *Tracker) Update(c Control) {
	t.mu.Lock()
	t.snap.Control = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
