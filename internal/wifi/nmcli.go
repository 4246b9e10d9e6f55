package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	opConnect    = "connect"
	opDisconnect = "disconnect"

	connectTimeout    = 45 * time.Second
	disconnectTimeout = 10 * time.Second
)

// runFunc executes a command with stdin and returns its combined output.
type runFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

type command struct {
	op      string
	args    []string
	stdin   []byte
	timeout time.Duration
}

// NMCLI associates through NetworkManager's nmcli tool. Commands run one at
// a time, in the order they were issued, on a single worker goroutine.
// Association status comes from sysfs so that IsAssociated never waits on
// NetworkManager.
//
// A disconnect supersedes any connect that has not finished: queued
// connects are dropped and a running one is cancelled.
type NMCLI struct {
	iface string
	sysfs string
	run   runFunc
	log   zerolog.Logger

	mu      sync.Mutex
	wake    *sync.Cond
	queue   []command
	cancel  context.CancelFunc // set while a connect is running
	started bool
	closed  bool
	done    chan struct{}
	lastErr error
}

// NewNMCLI creates an associator for the given wireless interface.
func NewNMCLI(iface string, log zerolog.Logger) *NMCLI {
	n := &NMCLI{
		iface: iface,
		sysfs: "/sys/class/net",
		run:   execRun,
		log:   log,
		done:  make(chan struct{}),
	}
	n.wake = sync.NewCond(&n.mu)
	return n
}

func execRun(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	return cmd.CombinedOutput()
}

// BeginAssociation queues `nmcli device wifi connect`. The secret is
// answered on stdin through --ask so it never appears in the process list.
func (n *NMCLI) BeginAssociation(ssid, secret string) {
	cmd := command{
		op:      opConnect,
		args:    []string{"device", "wifi", "connect", ssid, "ifname", n.iface},
		timeout: connectTimeout,
	}
	if secret != "" {
		cmd.args = append([]string{"--ask"}, cmd.args...)
		cmd.stdin = []byte(secret + "\n")
	}
	n.enqueue(cmd)
}

// Disassociate queues `nmcli device disconnect`, cancelling any pending
// connect first.
func (n *NMCLI) Disassociate() {
	n.enqueue(command{
		op:      opDisconnect,
		args:    []string{"device", "disconnect", n.iface},
		timeout: disconnectTimeout,
	})
}

// IsAssociated reports whether the interface's operstate is "up".
func (n *NMCLI) IsAssociated() bool {
	data, err := os.ReadFile(filepath.Join(n.sysfs, n.iface, "operstate"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "up"
}

// LastError returns the error from the most recent failed nmcli command.
// Superseded connects are not failures.
func (n *NMCLI) LastError() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// Close cancels pending connects, lets queued disconnects run to
// completion and waits for the worker to exit. Commands issued after
// Close are ignored.
func (n *NMCLI) Close() error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		n.supersedeConnects()
		n.wake.Broadcast()
	}
	started := n.started
	n.mu.Unlock()

	if started {
		<-n.done
	}
	return nil
}

func (n *NMCLI) enqueue(cmd command) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		n.log.Debug().Str("op", cmd.op).Str("iface", n.iface).Msg("nmcli closed, command ignored")
		return
	}
	if cmd.op == opDisconnect {
		n.supersedeConnects()
	}
	n.queue = append(n.queue, cmd)
	if !n.started {
		n.started = true
		go n.worker()
	}
	n.wake.Signal()
}

// supersedeConnects drops queued connects and cancels a running one.
// Callers hold n.mu.
func (n *NMCLI) supersedeConnects() {
	kept := n.queue[:0]
	for _, cmd := range n.queue {
		if cmd.op == opConnect {
			n.log.Debug().Str("iface", n.iface).Msg("queued nmcli connect dropped")
			continue
		}
		kept = append(kept, cmd)
	}
	n.queue = kept
	if n.cancel != nil {
		n.cancel()
	}
}

func (n *NMCLI) worker() {
	defer close(n.done)
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.closed {
			n.wake.Wait()
		}
		if len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		cmd := n.queue[0]
		n.queue = n.queue[1:]
		ctx, cancel := context.WithTimeout(context.Background(), cmd.timeout)
		if cmd.op == opConnect {
			n.cancel = cancel
		}
		n.mu.Unlock()

		out, err := n.run(ctx, cmd.stdin, "nmcli", cmd.args...)
		superseded := errors.Is(ctx.Err(), context.Canceled)
		cancel()
		n.finish(cmd, out, err, superseded)
	}
}

func (n *NMCLI) finish(cmd command, out []byte, err error, superseded bool) {
	n.mu.Lock()
	n.cancel = nil
	switch {
	case superseded:
	case err != nil:
		n.lastErr = fmt.Errorf("nmcli %s: %w: %s", cmd.op, err, bytes.TrimSpace(out))
	default:
		n.lastErr = nil
	}
	n.mu.Unlock()

	switch {
	case superseded:
		n.log.Info().Str("op", cmd.op).Str("iface", n.iface).Msg("nmcli command superseded")
	case err != nil:
		n.log.Warn().Err(err).Str("op", cmd.op).Str("iface", n.iface).Msg("nmcli command failed")
	default:
		n.log.Debug().Str("op", cmd.op).Str("iface", n.iface).Msg("nmcli command done")
	}
}
