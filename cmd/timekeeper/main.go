// Command timekeeper keeps a device on its access point and its clock in
// sync, and publishes calendar and connectivity events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/timekeeper/internal/clock"
	"github.com/sweeney/timekeeper/internal/config"
	"github.com/sweeney/timekeeper/internal/gpio"
	"github.com/sweeney/timekeeper/internal/logic"
	"github.com/sweeney/timekeeper/internal/metrics"
	"github.com/sweeney/timekeeper/internal/mqtt"
	"github.com/sweeney/timekeeper/internal/status"
	"github.com/sweeney/timekeeper/internal/timesync"
	"github.com/sweeney/timekeeper/internal/web"
	"github.com/sweeney/timekeeper/internal/wifi"
)

const (
	serviceInterval = time.Second
	pollInterval    = 250 * time.Millisecond
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	flag.String("broker", "", "MQTT broker address (overrides config)")
	flag.String("http", "", "HTTP status address, \"off\" to disable (overrides config)")
	flag.Duration("heartbeat", 0, "Heartbeat interval, 0 to disable (overrides config)")
	printState := flag.Bool("print-state", false, "Print current state and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = applyFlagOverrides(flag.CommandLine, &cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log.Level, os.Stderr)
	if err := run(cfg, *printState, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// applyFlagOverrides copies explicitly set flags over the file config.
func applyFlagOverrides(fs *flag.FlagSet, cfg *config.Config) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = v
		case "http":
			if v == "off" {
				v = ""
			}
			cfg.HTTP.Addr = v
		case "heartbeat":
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("heartbeat: %w", perr)
				return
			}
			cfg.MQTT.Heartbeat = d
		}
	})
	return err
}

func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "timekeeper").Logger()
}

func newClock(mode string, log zerolog.Logger) (clock.Source, error) {
	if mode == config.ClockSystem {
		c, err := clock.NewSystemClock(log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return clock.NewOffsetClock(time.Now), nil
}

func run(cfg config.Config, printState bool, log zerolog.Logger) error {
	bootID := uuid.NewString()
	log = log.With().Str("boot_id", bootID).Logger()

	clk, err := newClock(cfg.Clock.Mode, log.With().Str("component", "clock").Logger())
	if err != nil {
		return fmt.Errorf("init clock: %w", err)
	}

	assoc := wifi.NewNMCLI(cfg.Wifi.Interface, log.With().Str("component", "nmcli").Logger())
	defer assoc.Close()

	// Print state mode
	if printState {
		fmt.Printf("clock: %s (%s)\nwifi: %s associated=%v\n",
			clk.Now().Format(time.RFC3339), cfg.Clock.Mode, cfg.Wifi.Interface, assoc.IsAssociated())
		return nil
	}

	ntpClient := timesync.NewNTPClient(cfg.NTP.Server, cfg.NTP.Timeout, log.With().Str("component", "ntp").Logger())
	defer ntpClient.Close()

	var led gpio.Indicator
	if cfg.LED.Enabled {
		ind, err := gpio.NewRealIndicator(cfg.LED.Chip, cfg.LED.Pin)
		if err != nil {
			return fmt.Errorf("init led: %w", err)
		}
		defer ind.Close()
		led = ind
	}

	ctrl := logic.NewController(controllerConfig(cfg), logic.Deps{
		Clock: clk,
		Net:   assoc,
		NTP:   ntpClient,
		Log:   log.With().Str("component", "controller").Logger(),
	})

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker, "timekeeper-"+bootID[:8],
		log.With().Str("component", "mqtt").Logger())
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), bootID, status.Config{
		PollMs:      pollInterval.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		NTPServer:   cfg.NTP.Server,
		ClockMode:   cfg.Clock.Mode,
	})
	network := func() *status.NetworkInfo {
		return readNetworkInfo(cfg.Wifi.Interface, cfg.Wifi.SSID)
	}
	tracker.SetNetwork(network())

	// Startup event is buffered until the broker connection comes up.
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.SystemStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.SystemStartup, ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, log.With().Str("component", "http").Logger())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	log.Info().
		Str("ssid", cfg.Wifi.SSID).
		Str("ntp", cfg.NTP.Server).
		Str("broker", cfg.MQTT.Broker).
		Dur("heartbeat", cfg.MQTT.Heartbeat).
		Str("clock", cfg.Clock.Mode).
		Msg("started")

	serviceTicker := time.NewTicker(serviceInterval)
	defer serviceTicker.Stop()
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       ctrl,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		led:        led,
		heartbeat:  cfg.MQTT.Heartbeat,
		network:    network,
		now:        time.Now,
		log:        log,
	}
	return l.run(serviceTicker.C, pollTicker.C, sigCh)
}

func controllerConfig(cfg config.Config) logic.Config {
	return logic.Config{
		Credentials: wifi.Credentials{SSID: cfg.Wifi.SSID, Secret: cfg.Wifi.Password},
		WifiTimeouts: wifi.Timeouts{
			Connect:          cfg.Timeouts.ConnectSeconds,
			DiscoWait:        cfg.Timeouts.DiscoWaitSeconds,
			ReconnectBackoff: cfg.Timeouts.ReconnectBackoffSeconds,
		},
		SyncMaxWait: cfg.Timeouts.SyncMaxWaitSeconds,
		SyncRetry:   cfg.Timeouts.SyncRetrySeconds,
		ResyncDaily: cfg.Timeouts.ResyncDaily,
	}
}

// loop is the single goroutine that drives the controller. All controller
// access happens here.
type loop struct {
	ctrl       *logic.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	led        gpio.Indicator // nil when no LED is configured
	heartbeat  time.Duration
	network    func() *status.NetworkInfo
	now        func() time.Time
	log        zerolog.Logger

	ledTick int
}

func (l *loop) run(serviceTick, pollTick <-chan time.Time, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(l.now())

	l.publish(l.ctrl.Start())
	l.refresh()

	for {
		select {
		case s := <-sig:
			l.log.Info().Stringer("signal", s).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			l.publish(l.ctrl.Stop())
			l.refresh()
			l.setLED(false)

			snap := l.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  l.now(),
				Event:      mqtt.SystemShutdown,
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, mqtt.SystemShutdown, signalName),
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				l.log.Warn().Err(err).Msg("failed to publish shutdown event")
			}
			return nil

		case <-pollTick:
			l.publish(l.ctrl.Poll())

		case <-serviceTick:
			l.publish(l.ctrl.Service())
			l.ledTick++
			l.setLED(gpio.Level(l.ctrl.IsConnected(), l.ctrl.SyncComplete(), l.ledTick))
			l.refresh()

			hbData := hb.Check(l.now(), l.heartbeat, l.ctrl.Counts())
			if hbData == nil {
				continue
			}
			l.log.Info().
				Dur("uptime", hbData.Uptime).
				Int("minutes", hbData.Counts.Minutes).
				Int("syncs", hbData.Counts.Syncs).
				Int("wifi_drops", hbData.Counts.WifiDrops).
				Msg("heartbeat")

			l.tracker.SetNetwork(l.network())
			snap := l.tracker.Snapshot()
			hbEvent := mqtt.SystemEvent{
				Timestamp:  hbData.Timestamp,
				Event:      mqtt.SystemHeartbeat,
				RawPayload: status.FormatStatusEvent(snap, mqtt.SystemHeartbeat, ""),
			}
			if err := l.publisher.PublishSystem(hbEvent); err != nil {
				metrics.RecordPublishError()
				l.log.Warn().Err(err).Msg("heartbeat publish error")
			}
		}
	}
}

func (l *loop) publish(events []logic.Event) {
	for _, event := range events {
		l.log.Info().
			Str("event", string(event.Type)).
			Str("wifi", event.Wifi).
			Str("sync", event.Sync).
			Msg("event")
		metrics.RecordEvent(event)
		if event.Type == logic.EventWifiConnected {
			l.tracker.SetNetwork(l.network())
		}
		if err := l.publisher.Publish(event); err != nil {
			// Don't crash on publish failure
			metrics.RecordPublishError()
			l.log.Warn().Err(err).Str("event", string(event.Type)).Msg("publish error")
		}
	}
}

// refresh pushes controller state to the status tracker and metrics.
func (l *loop) refresh() {
	c := l.ctrl
	l.tracker.Update(status.Control{
		Wifi:         c.WifiState().String(),
		Sync:         c.SyncState().String(),
		SyncComplete: c.SyncComplete(),
		SyncAttempts: c.SyncAttempts(),
		LastSync:     c.LastSync(),
		DeviceTime:   c.Now(),
		Counts:       c.Counts(),
	})
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}

	var lastSync int64
	if t := c.LastSync(); !t.IsZero() {
		lastSync = t.Unix()
	}
	metrics.SetStatus(metrics.Status{
		Wifi:      c.WifiState().String(),
		Connected: c.IsConnected(),
		Sync:      c.SyncState().String(),
		Syncs:     c.SyncAttempts(),
		LastSync:  lastSync,
	})
}

func (l *loop) setLED(on bool) {
	if l.led == nil {
		return
	}
	if err := l.led.Set(on); err != nil {
		l.log.Warn().Err(err).Msg("led write error")
	}
}

// readNetworkInfo returns the first IPv4 address of iface, or nil if the
// interface does not exist.
func readNetworkInfo(iface, ssid string) *status.NetworkInfo {
	if iface == "" {
		return nil
	}
	ifc, err := net.InterfaceByName(iface)
	if err != nil {
		return nil
	}
	info := &status.NetworkInfo{Interface: iface, SSID: ssid}
	addrs, err := ifc.Addrs()
	if err != nil {
		return info
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			info.IP = ipn.IP.String()
			break
		}
	}
	return info
}
