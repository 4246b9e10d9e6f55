// Package wifi keeps the device associated with its access point.
// The Machine is pure control logic driven once per second; the network
// layer is reached only through an Associator.
package wifi

// Associator is the network association client.
// All methods must return without waiting for the network.
type Associator interface {
	// BeginAssociation starts associating with the named network.
	BeginAssociation(ssid, secret string)

	// Disassociate drops the current association or pending attempt.
	Disassociate()

	// IsAssociated reports the last known association status.
	IsAssociated() bool
}

// Credentials identify the access point. They are fixed for the life of
// the process.
type Credentials struct {
	SSID   string
	Secret string
}

// Timeouts bounds every wait state, in service calls (seconds).
type Timeouts struct {
	// Connect is how long Connecting waits for association.
	Connect int
	// DiscoWait is the settle time after a dropped connection.
	DiscoWait int
	// ReconnectBackoff is the pause after a connect timeout.
	ReconnectBackoff int
}

// DefaultTimeouts returns 30s connect, 10s settle and 60s backoff.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:          30,
		DiscoWait:        10,
		ReconnectBackoff: 60,
	}
}
