// Package logic is the device's control core. It composes the
// connectivity machine, the time-sync machine and the calendar detectors
// and reports what happened as Events.
// This package has NO direct hardware, MQTT or OS dependencies; every
// collaborator is injected.
package logic

import "time"

// EventType identifies a state change or scheduling tick.
type EventType string

const (
	EventWifiConnecting   EventType = "WIFI_CONNECTING"
	EventWifiConnected    EventType = "WIFI_CONNECTED"
	EventWifiDisconnected EventType = "WIFI_DISCONNECTED"
	EventWifiDropped      EventType = "WIFI_DROPPED"
	EventWifiTimeout      EventType = "WIFI_TIMEOUT"

	EventSyncStarted  EventType = "SYNC_STARTED"
	EventSyncComplete EventType = "SYNC_COMPLETE"
	EventSyncTimeout  EventType = "SYNC_TIMEOUT"

	EventMinute EventType = "MINUTE"
	EventHour   EventType = "HOUR"
	EventDay    EventType = "DAY"
)

// Event is something the rest of the device may want to act on.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Wifi      string // connectivity state after the event
	Sync      string // time-sync state after the event
}

// EventCounts tracks how often each kind of event occurred since startup.
type EventCounts struct {
	Seconds int
	Minutes int
	Hours   int
	Days    int

	WifiConnects int
	WifiDrops    int
	WifiTimeouts int

	Syncs        int
	SyncTimeouts int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
