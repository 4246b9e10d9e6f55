package logic

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/timekeeper/internal/clock"
	"github.com/sweeney/timekeeper/internal/schedule"
	"github.com/sweeney/timekeeper/internal/timesync"
	"github.com/sweeney/timekeeper/internal/wifi"
)

// Config holds the controller's tunables.
type Config struct {
	Credentials  wifi.Credentials
	WifiTimeouts wifi.Timeouts

	// SyncMaxWait is the time-sync timeout in seconds.
	SyncMaxWait int

	// SyncRetry is how many connected seconds to wait after a failed
	// sync before starting another.
	SyncRetry int

	// ResyncDaily starts a new sync after every day rollover.
	ResyncDaily bool
}

// DefaultConfig returns the standard timeouts with daily resync.
func DefaultConfig() Config {
	return Config{
		WifiTimeouts: wifi.DefaultTimeouts(),
		SyncMaxWait:  timesync.DefaultMaxWait,
		SyncRetry:    300,
		ResyncDaily:  true,
	}
}

// Deps are the external collaborators.
type Deps struct {
	Clock clock.Source
	Net   wifi.Associator
	NTP   timesync.Client
	Log   zerolog.Logger
}

// Controller owns all control state. Drive it from a single goroutine:
// Service once per second and Poll at least twice per second.
type Controller struct {
	cfg      Config
	clock    clock.Source
	wifi     *wifi.Machine
	sync     *timesync.Machine
	detector *schedule.Detector
	log      zerolog.Logger

	pending   []Event
	counts    EventCounts
	retryWait int
	resyncDue bool
}

// NewController wires the machines together. Nothing is started until
// Start is called.
func NewController(cfg Config, deps Deps) *Controller {
	c := &Controller{
		cfg:      cfg,
		clock:    deps.Clock,
		detector: schedule.NewDetector(deps.Clock),
		log:      deps.Log,
	}

	c.wifi = wifi.NewMachine(deps.Net, cfg.Credentials, cfg.WifiTimeouts,
		deps.Log.With().Str("component", "wifi").Logger())
	c.wifi.OnTransition = c.wifiChanged

	c.sync = timesync.NewMachine(deps.NTP, deps.Clock, cfg.SyncMaxWait,
		deps.Log.With().Str("component", "timesync").Logger())
	c.sync.OnSync = c.detector.ResetBaseline
	c.sync.OnTransition = c.syncChanged

	return c
}

// Start establishes the scheduling baseline and begins connecting if an
// SSID is configured.
func (c *Controller) Start() []Event {
	c.detector.ResetBaseline()
	if c.cfg.Credentials.SSID == "" {
		c.log.Warn().Msg("no ssid configured, staying disconnected")
	} else {
		c.wifi.Connect()
	}
	return c.drain()
}

// Service advances connectivity, then time sync, then applies the sync
// policy. Call once per second.
func (c *Controller) Service() []Event {
	c.wifi.Service()
	c.sync.Service()
	c.applySyncPolicy()
	return c.drain()
}

// Poll runs the calendar detectors.
func (c *Controller) Poll() []Event {
	r := c.detector.Poll()
	if r.Second {
		c.counts.Seconds++
	}
	if r.Minute {
		c.counts.Minutes++
		c.emit(EventMinute)
	}
	if r.Hour {
		c.counts.Hours++
		c.emit(EventHour)
	}
	if r.Day {
		c.counts.Days++
		if c.cfg.ResyncDaily {
			c.resyncDue = true
		}
		c.emit(EventDay)
	}
	return c.drain()
}

// Stop disconnects from the access point.
func (c *Controller) Stop() []Event {
	c.wifi.Disconnect()
	return c.drain()
}

// applySyncPolicy decides when to start a time sync. The sync machine
// never retries by itself.
func (c *Controller) applySyncPolicy() {
	if !c.wifi.IsConnected() {
		return
	}
	switch c.sync.State() {
	case timesync.StateIdle:
		c.sync.Start()
	case timesync.StateTimeoutError:
		c.retryWait++
		if c.retryWait >= c.cfg.SyncRetry {
			c.sync.Start()
		}
	case timesync.StateComplete:
		if c.resyncDue {
			c.sync.Start()
		}
	case timesync.StateStarted:
	}
}

func (c *Controller) wifiChanged(from, to wifi.State) {
	switch to {
	case wifi.StateConnecting:
		c.emit(EventWifiConnecting)
	case wifi.StateConnected:
		c.counts.WifiConnects++
		c.emit(EventWifiConnected)
	case wifi.StateDisconnected:
		if from != to {
			c.emit(EventWifiDisconnected)
		}
	case wifi.StateDisconnectWait:
		c.counts.WifiDrops++
		c.emit(EventWifiDropped)
	case wifi.StateErrorTimeout:
		c.counts.WifiTimeouts++
		c.emit(EventWifiTimeout)
	}
}

func (c *Controller) syncChanged(from, to timesync.State) {
	switch to {
	case timesync.StateStarted:
		c.retryWait = 0
		c.resyncDue = false
		c.emit(EventSyncStarted)
	case timesync.StateComplete:
		c.counts.Syncs++
		c.emit(EventSyncComplete)
	case timesync.StateTimeoutError:
		c.counts.SyncTimeouts++
		c.emit(EventSyncTimeout)
	case timesync.StateIdle:
	}
}

func (c *Controller) emit(t EventType) {
	c.pending = append(c.pending, Event{
		Timestamp: c.clock.Now(),
		Type:      t,
		Wifi:      c.wifi.State().String(),
		Sync:      c.sync.State().String(),
	})
}

func (c *Controller) drain() []Event {
	events := c.pending
	c.pending = nil
	return events
}

// IsConnected reports whether the device is associated.
func (c *Controller) IsConnected() bool { return c.wifi.IsConnected() }

// WifiState returns the connectivity state.
func (c *Controller) WifiState() wifi.State { return c.wifi.State() }

// SyncState returns the time-sync state.
func (c *Controller) SyncState() timesync.State { return c.sync.State() }

// SyncComplete reports whether the last time sync succeeded.
func (c *Controller) SyncComplete() bool { return c.sync.IsComplete() }

// SyncAttempts returns the number of successful syncs.
func (c *Controller) SyncAttempts() int { return c.sync.Attempts() }

// LastSync returns the time applied by the last successful sync.
func (c *Controller) LastSync() time.Time { return c.sync.LastSync() }

// Counts returns a copy of the event counters.
func (c *Controller) Counts() EventCounts { return c.counts }

// Now returns the device clock's current time.
func (c *Controller) Now() time.Time { return c.clock.Now() }
