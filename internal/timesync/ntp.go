package timesync

import (
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/rs/zerolog"
)

// DefaultServer is the NTP pool queried when none is configured.
const DefaultServer = "pool.ntp.org"

type queryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPClient is a non-blocking NTP client. Queries run on a background
// goroutine; Update only reports whether one has completed.
type NTPClient struct {
	server  string
	timeout time.Duration
	query   queryFunc
	now     func() time.Time
	log     zerolog.Logger

	mu         sync.Mutex
	wg         sync.WaitGroup
	offset     time.Duration
	inFlight   bool
	fresh      bool
	serverTime time.Time
	receivedAt time.Time
	lastErr    error
	generation int
}

// NewNTPClient creates a client for server with a per-query timeout.
func NewNTPClient(server string, timeout time.Duration, log zerolog.Logger) *NTPClient {
	if server == "" {
		server = DefaultServer
	}
	return &NTPClient{
		server:  server,
		timeout: timeout,
		query:   ntp.QueryWithOptions,
		now:     time.Now,
		log:     log,
	}
}

// Begin discards any previous result so the next Update waits for a new one.
func (c *NTPClient) Begin() {
	c.mu.Lock()
	c.fresh = false
	c.generation++
	c.mu.Unlock()
}

// SetOffset sets the offset added to EpochTime.
func (c *NTPClient) SetOffset(seconds int) {
	c.mu.Lock()
	c.offset = time.Duration(seconds) * time.Second
	c.mu.Unlock()
}

// Update reports whether a response has arrived since Begin. If not, and
// no query is running, it starts one.
func (c *NTPClient) Update() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh {
		return true
	}
	c.startLocked()
	return false
}

// ForceUpdate starts a query unless one is already running.
func (c *NTPClient) ForceUpdate() {
	c.mu.Lock()
	c.startLocked()
	c.mu.Unlock()
}

// EpochTime returns the server time advanced by the local time elapsed
// since the response arrived, plus the offset.
func (c *NTPClient) EpochTime() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serverTime.IsZero() {
		return 0
	}
	t := c.serverTime.Add(c.now().Sub(c.receivedAt)).Add(c.offset)
	return t.Unix()
}

// LastError returns the error from the most recent failed query.
func (c *NTPClient) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close waits for an in-flight query to finish.
func (c *NTPClient) Close() error {
	c.wg.Wait()
	return nil
}

func (c *NTPClient) startLocked() {
	if c.inFlight {
		return
	}
	c.inFlight = true
	gen := c.generation
	c.wg.Add(1)
	go c.run(gen)
}

func (c *NTPClient) run(gen int) {
	defer c.wg.Done()

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: c.timeout})
	if err == nil {
		err = resp.Validate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.lastErr = fmt.Errorf("ntp query %s: %w", c.server, err)
		c.log.Debug().Err(err).Str("server", c.server).Msg("ntp query failed")
		return
	}
	c.lastErr = nil
	c.serverTime = resp.Time
	c.receivedAt = c.now()
	// A response for a cycle that has since been restarted still updates
	// the time but does not count as fresh for the new cycle.
	if gen == c.generation {
		c.fresh = true
	}
}
