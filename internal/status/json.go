package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BootID        string       `json:"boot_id"`
	Wifi          string       `json:"wifi"`
	Sync          SyncJSON     `json:"sync"`
	DeviceTime    string       `json:"device_time"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SyncJSON reports time-sync state.
type SyncJSON struct {
	State     string `json:"state"`
	Complete  bool   `json:"complete"`
	Successes int    `json:"successes"`
	LastSync  string `json:"last_sync,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Minutes      int `json:"minutes"`
	Hours        int `json:"hours"`
	Days         int `json:"days"`
	WifiConnects int `json:"wifi_connects"`
	WifiDrops    int `json:"wifi_drops"`
	WifiTimeouts int `json:"wifi_timeouts"`
	Syncs        int `json:"syncs"`
	SyncTimeouts int `json:"sync_timeouts"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Interface string `json:"interface"`
	IP        string `json:"ip"`
	SSID      string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	NTPServer   string `json:"ntp_server"`
	ClockMode   string `json:"clock_mode"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Counts
	inner := StatusInner{
		BootID: snap.BootID,
		Wifi:   orUnknown(snap.Wifi),
		Sync: SyncJSON{
			State:     orUnknown(snap.Sync),
			Complete:  snap.SyncComplete,
			Successes: snap.SyncAttempts,
			LastSync:  formatTime(snap.LastSync),
		},
		DeviceTime:    formatTime(snap.DeviceTime),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Minutes:      c.Minutes,
			Hours:        c.Hours,
			Days:         c.Days,
			WifiConnects: c.WifiConnects,
			WifiDrops:    c.WifiDrops,
			WifiTimeouts: c.WifiTimeouts,
			Syncs:        c.Syncs,
			SyncTimeouts: c.SyncTimeouts,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			NTPServer:   snap.Config.NTPServer,
			ClockMode:   snap.Config.ClockMode,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Interface: snap.Network.Interface,
			IP:        snap.Network.IP,
			SSID:      snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
