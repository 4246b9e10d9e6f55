package timesync

import (
	"time"

	"github.com/rs/zerolog"
)

// State is the time-sync state.
type State int

const (
	StateIdle State = iota
	StateStarted
	StateComplete
	StateTimeoutError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarted:
		return "STARTED"
	case StateComplete:
		return "COMPLETE"
	case StateTimeoutError:
		return "TIMEOUT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Machine drives a Client through one sync attempt per Start. It never
// retries on its own. Not safe for concurrent use.
type Machine struct {
	client  Client
	clock   ClockSetter
	maxWait int
	log     zerolog.Logger

	state     State
	wait      int
	attempts  int
	succeeded bool
	lastSync  time.Time

	// OnSync, if set, is called after the clock has been set by a
	// successful sync and before Service returns.
	OnSync func()

	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State)
}

// NewMachine creates a Machine in StateIdle.
func NewMachine(client Client, clock ClockSetter, maxWait int, log zerolog.Logger) *Machine {
	return &Machine{
		client:  client,
		clock:   clock,
		maxWait: maxWait,
		log:     log,
	}
}

// Start begins a sync attempt with a zero UTC offset.
func (m *Machine) Start() {
	m.client.Begin()
	m.client.SetOffset(0)
	m.succeeded = false
	m.transition(StateStarted)
	m.log.Info().Msg("time sync started")
}

// Service advances the machine by one second. It only acts while Started.
func (m *Machine) Service() {
	switch m.state {
	case StateStarted:
		if m.client.Update() {
			epoch := m.client.EpochTime()
			m.clock.SetTime(epoch)
			if m.OnSync != nil {
				m.OnSync()
			}
			m.succeeded = true
			m.attempts++
			m.lastSync = time.Unix(epoch, 0).UTC()
			m.transition(StateComplete)
			m.log.Info().Time("time", m.lastSync).Int("attempts", m.attempts).Msg("time sync complete")
			return
		}
		m.client.ForceUpdate()
		m.wait++
		if m.wait >= m.maxWait {
			m.succeeded = false
			m.transition(StateTimeoutError)
			m.log.Warn().Int("timeout_s", m.maxWait).Msg("time sync timed out")
		}

	case StateIdle, StateComplete, StateTimeoutError:
		// Nothing to do until Start.

	default:
		m.log.Error().Int("state", int(m.state)).Msg("timesync: unhandled state")
	}
}

// IsStarted reports whether a sync is in progress.
func (m *Machine) IsStarted() bool {
	return m.state == StateStarted
}

// IsComplete reports whether the last sync attempt succeeded.
func (m *Machine) IsComplete() bool {
	return m.succeeded
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Attempts returns the number of successful syncs since startup.
func (m *Machine) Attempts() int {
	return m.attempts
}

// WaitCounter returns the seconds spent in the current sync attempt.
func (m *Machine) WaitCounter() int {
	return m.wait
}

// LastSync returns the time applied by the last successful sync, or the
// zero time if none has succeeded.
func (m *Machine) LastSync() time.Time {
	return m.lastSync
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	m.wait = 0
	if m.OnTransition != nil {
		m.OnTransition(from, to)
	}
}
