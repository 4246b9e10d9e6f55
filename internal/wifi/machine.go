package wifi

import (
	"github.com/rs/zerolog"
)

// State is the connectivity state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnectWait
	StateErrorTimeout
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnectWait:
		return "DISCONNECT_WAIT"
	case StateErrorTimeout:
		return "ERROR_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Machine manages association with a single access point.
// Not safe for concurrent use; drive it from one goroutine.
type Machine struct {
	net      Associator
	creds    Credentials
	timeouts Timeouts
	log      zerolog.Logger

	state State
	wait  int

	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State)
}

// NewMachine creates a Machine in StateDisconnected.
func NewMachine(net Associator, creds Credentials, timeouts Timeouts, log zerolog.Logger) *Machine {
	return &Machine{
		net:      net,
		creds:    creds,
		timeouts: timeouts,
		log:      log,
	}
}

// Connect starts an association attempt with the stored credentials.
func (m *Machine) Connect() {
	m.transition(StateConnecting)
	m.net.BeginAssociation(m.creds.SSID, m.creds.Secret)
	m.log.Info().Str("ssid", m.creds.SSID).Msg("wifi connection initiated")
}

// Disconnect drops the association and stops automatic reconnection.
func (m *Machine) Disconnect() {
	m.transition(StateDisconnected)
	m.net.Disassociate()
	m.log.Info().Msg("wifi disconnect")
}

// Service advances the machine by one second.
func (m *Machine) Service() {
	switch m.state {
	case StateDisconnected:
		// Stays put until Connect is called.

	case StateConnecting:
		if m.net.IsAssociated() {
			m.transition(StateConnected)
			m.log.Info().Str("ssid", m.creds.SSID).Msg("wifi connected")
			return
		}
		m.wait++
		if m.wait >= m.timeouts.Connect {
			m.transition(StateErrorTimeout)
			m.net.Disassociate()
			m.log.Warn().Int("timeout_s", m.timeouts.Connect).Msg("wifi connection timed out")
		}

	case StateConnected:
		if !m.net.IsAssociated() {
			m.transition(StateDisconnectWait)
			m.log.Warn().Msg("wifi disconnect discovered")
		}

	case StateDisconnectWait:
		m.wait++
		if m.wait >= m.timeouts.DiscoWait {
			m.Connect()
		}

	case StateErrorTimeout:
		m.wait++
		if m.wait >= m.timeouts.ReconnectBackoff {
			m.Connect()
		}

	default:
		m.log.Error().Int("state", int(m.state)).Msg("wifi: unhandled state")
	}
}

// IsConnected reports whether the machine is in StateConnected.
func (m *Machine) IsConnected() bool {
	return m.state == StateConnected
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// WaitCounter returns the seconds spent in the current state.
func (m *Machine) WaitCounter() int {
	return m.wait
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	m.wait = 0
	if m.OnTransition != nil {
		m.OnTransition(from, to)
	}
}
