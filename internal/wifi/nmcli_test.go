package wifi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type runRecord struct {
	argv   []string
	stdin  []byte
	ctxErr error
}

// recordedRun stands in for nmcli. A command whose op has a gate blocks
// until the gate is closed or its context ends.
type recordedRun struct {
	mu      sync.Mutex
	calls   []runRecord
	events  []string
	err     error
	gates   map[string]chan struct{}
	started chan string
	done    chan string
}

func newRecordedRun() *recordedRun {
	return &recordedRun{
		gates:   map[string]chan struct{}{},
		started: make(chan string, 8),
		done:    make(chan string, 8),
	}
}

func (r *recordedRun) hold(op string) chan struct{} {
	gate := make(chan struct{})
	r.gates[op] = gate
	return gate
}

func (r *recordedRun) run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	op := opConnect
	if slices.Contains(args, opDisconnect) {
		op = opDisconnect
	}

	r.mu.Lock()
	r.events = append(r.events, "start "+op)
	gate := r.gates[op]
	r.mu.Unlock()
	r.started <- op

	var err error
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	r.mu.Lock()
	r.events = append(r.events, "end "+op)
	r.calls = append(r.calls, runRecord{argv: append([]string{name}, args...), stdin: stdin, ctxErr: ctx.Err()})
	r.mu.Unlock()
	r.done <- op

	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return []byte("Error: No network with SSID 'shed' found."), r.err
	}
	return nil, nil
}

func (r *recordedRun) snapshot() ([]runRecord, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls), slices.Clone(r.events)
}

func newTestNMCLI(t *testing.T, r *recordedRun) *NMCLI {
	t.Helper()
	n := NewNMCLI("wlan0", zerolog.Nop())
	n.sysfs = t.TempDir()
	n.run = r.run
	return n
}

func waitOp(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for nmcli %s", want)
	}
}

func TestNMCLICommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := newRecordedRun()
	n := newTestNMCLI(t, r)

	n.BeginAssociation("shed", "hunter2")
	waitOp(t, r.done, opConnect)
	n.Disassociate()
	waitOp(t, r.done, opDisconnect)
	require.NoError(t, n.Close())

	calls, _ := r.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"nmcli", "--ask", "device", "wifi", "connect", "shed", "ifname", "wlan0"}, calls[0].argv)
	assert.Equal(t, "hunter2\n", string(calls[0].stdin))
	assert.Equal(t, []string{"nmcli", "device", "disconnect", "wlan0"}, calls[1].argv)
	assert.Nil(t, calls[1].stdin)
	assert.NoError(t, n.LastError())

	for _, c := range calls {
		for _, arg := range c.argv {
			assert.NotContains(t, arg, "hunter2", "secret must not appear in argv")
		}
	}
}

func TestNMCLIOpenNetworkOmitsPassword(t *testing.T) {
	r := newRecordedRun()
	n := newTestNMCLI(t, r)

	n.BeginAssociation("cafe", "")
	waitOp(t, r.done, opConnect)
	require.NoError(t, n.Close())

	calls, _ := r.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"nmcli", "device", "wifi", "connect", "cafe", "ifname", "wlan0"}, calls[0].argv)
	assert.Nil(t, calls[0].stdin)
}

func TestNMCLIRecordsFailure(t *testing.T) {
	r := newRecordedRun()
	r.err = errors.New("exit status 10")
	n := newTestNMCLI(t, r)

	n.BeginAssociation("shed", "hunter2")
	waitOp(t, r.done, opConnect)
	require.NoError(t, n.Close())

	err := n.LastError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nmcli connect")
	assert.Contains(t, err.Error(), "No network with SSID")
}

func TestNMCLIDisconnectCancelsSlowConnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := newRecordedRun()
	r.hold(opConnect)
	n := newTestNMCLI(t, r)

	n.BeginAssociation("shed", "hunter2")
	waitOp(t, r.started, opConnect)
	n.Disassociate()
	waitOp(t, r.done, opConnect)
	waitOp(t, r.done, opDisconnect)
	require.NoError(t, n.Close())

	calls, events := r.snapshot()
	assert.Equal(t, []string{"start connect", "end connect", "start disconnect", "end disconnect"}, events)
	require.Len(t, calls, 2)
	assert.ErrorIs(t, calls[0].ctxErr, context.Canceled)
	assert.NoError(t, calls[1].ctxErr)
	assert.NoError(t, n.LastError(), "a superseded connect is not a failure")
}

func TestNMCLIDisconnectDropsQueuedConnect(t *testing.T) {
	r := newRecordedRun()
	gate := r.hold(opDisconnect)
	n := newTestNMCLI(t, r)

	n.Disassociate()
	waitOp(t, r.started, opDisconnect)
	n.BeginAssociation("shed", "")
	n.Disassociate()
	close(gate)
	waitOp(t, r.done, opDisconnect)
	waitOp(t, r.done, opDisconnect)
	require.NoError(t, n.Close())

	_, events := r.snapshot()
	assert.Equal(t, []string{"start disconnect", "end disconnect", "start disconnect", "end disconnect"}, events)
}

func TestNMCLIKeepsIssueOrder(t *testing.T) {
	r := newRecordedRun()
	gate := r.hold(opDisconnect)
	n := newTestNMCLI(t, r)

	n.Disassociate()
	waitOp(t, r.started, opDisconnect)
	n.BeginAssociation("shed", "hunter2")
	close(gate)
	waitOp(t, r.done, opDisconnect)
	waitOp(t, r.done, opConnect)
	require.NoError(t, n.Close())

	_, events := r.snapshot()
	assert.Equal(t, []string{"start disconnect", "end disconnect", "start connect", "end connect"}, events)
}

func TestNMCLICloseWaitsForDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := newRecordedRun()
	gate := r.hold(opDisconnect)
	n := newTestNMCLI(t, r)

	n.Disassociate()
	waitOp(t, r.started, opDisconnect)

	closed := make(chan struct{})
	go func() {
		_ = n.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a disconnect was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the disconnect finished")
	}

	calls, _ := r.snapshot()
	require.Len(t, calls, 1)
	assert.NoError(t, calls[0].ctxErr, "shutdown disconnect must not be cancelled")
	assert.NoError(t, n.LastError())
}

func TestNMCLICloseCancelsConnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := newRecordedRun()
	r.hold(opConnect)
	n := newTestNMCLI(t, r)

	n.BeginAssociation("shed", "hunter2")
	waitOp(t, r.started, opConnect)
	require.NoError(t, n.Close())

	calls, _ := r.snapshot()
	require.Len(t, calls, 1)
	assert.ErrorIs(t, calls[0].ctxErr, context.Canceled)
	assert.NoError(t, n.LastError())
}

func TestNMCLIIgnoresCommandsAfterClose(t *testing.T) {
	r := newRecordedRun()
	n := newTestNMCLI(t, r)

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	n.BeginAssociation("shed", "hunter2")
	n.Disassociate()

	calls, _ := r.snapshot()
	assert.Empty(t, calls)
}

func TestNMCLIIsAssociated(t *testing.T) {
	n := newTestNMCLI(t, newRecordedRun())
	defer n.Close()

	assert.False(t, n.IsAssociated(), "missing interface")

	dir := filepath.Join(n.sysfs, "wlan0")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "operstate"), []byte("down\n"), 0o644))
	assert.False(t, n.IsAssociated())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "operstate"), []byte("up\n"), 0o644))
	assert.True(t, n.IsAssociated())
}
