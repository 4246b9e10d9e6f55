package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/timekeeper/internal/logic"
	"github.com/sweeney/timekeeper/internal/metrics"
	"github.com/sweeney/timekeeper/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      250,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		NTPServer:   "pool.ntp.org",
		ClockMode:   "offset",
	}
	tr := status.NewTracker(start, "boot-1", cfg)
	srv := New(":0", tr, zerolog.Nop())
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.Control{
		Wifi:         "CONNECTED",
		Sync:         "COMPLETE",
		SyncComplete: true,
		SyncAttempts: 1,
		Counts:       logic.EventCounts{Minutes: 5, Hours: 2},
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Wifi != "CONNECTED" {
		t.Errorf("Wifi: got %q, want CONNECTED", sj.Status.Wifi)
	}
	if !sj.Status.Sync.Complete {
		t.Error("expected Sync.Complete=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Minutes != 5 {
		t.Errorf("Counts.Minutes: got %d, want 5", sj.Status.Counts.Minutes)
	}
	if sj.Status.Counts.Hours != 2 {
		t.Errorf("Counts.Hours: got %d, want 2", sj.Status.Counts.Hours)
	}
	if sj.Status.Config.PollMs != 250 {
		t.Errorf("Config.PollMs: got %d, want 250", sj.Status.Config.PollMs)
	}
	if sj.Status.BootID != "boot-1" {
		t.Errorf("BootID: got %q, want boot-1", sj.Status.BootID)
	}
}

func TestJSONUnknownStateBeforeUpdate(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Wifi != "UNKNOWN" {
		t.Errorf("Wifi before update: got %q, want UNKNOWN", sj.Status.Wifi)
	}
	if sj.Status.Sync.State != "UNKNOWN" {
		t.Errorf("Sync before update: got %q, want UNKNOWN", sj.Status.Sync.State)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Interface: "wlan0",
		IP:        "192.168.1.42",
		SSID:      "shed",
	})

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(status.Control{Wifi: "CONNECTED", Sync: "STARTED"})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "STARTED") {
		t.Error("expected sync state in page")
	}
	if !strings.Contains(string(body), "boot-1") {
		t.Error("expected boot id in page")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	metrics.RecordEvent(logic.Event{Type: logic.EventMinute})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "timekeeper_events_total") {
		t.Error("expected timekeeper_events_total in metrics output")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Sync.Complete {
		t.Error("expected Sync.Complete=false initially")
	}

	tr.Update(status.Control{Wifi: "CONNECTED", Sync: "COMPLETE", SyncComplete: true, SyncAttempts: 1})
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Sync.Complete {
		t.Error("expected Sync.Complete=true after update")
	}
	if sj2.Status.Sync.Successes != 1 {
		t.Errorf("Sync.Successes: got %d, want 1", sj2.Status.Sync.Successes)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
