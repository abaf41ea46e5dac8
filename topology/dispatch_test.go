package topology

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/event"
	"github.com/ikmak/topologycore/session"
)

type fakeRoundTripper struct {
	attempts []Command
	errs     []error
	replies  []Result
}

func (f *fakeRoundTripper) RoundTrip(_ context.Context, _ address.Address, cmd Command) (Result, error) {
	i := len(f.attempts)
	f.attempts = append(f.attempts, cmd)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var reply Result
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

type transientError struct{}

func (transientError) Error() string { return "not writable primary" }

type permanentError struct{}

func (permanentError) Error() string { return "document failed validation" }

func classifyTransient(err error) bool {
	_, ok := err.(transientError)
	return ok
}

func standaloneTopology(t *testing.T) (*Topology, func()) {
	transport := newScriptedTransport()
	transport.set("a:1", &description.IsMasterResponse{OK: true, IsMaster: true})

	topo, err := New(
		WithSeedList("a:1"),
		WithHeartbeatFunc(transport.heartbeat),
		WithHeartbeatInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	waitForType(t, topo, description.Single, 2*time.Second)
	return topo, func() { topo.Close(context.Background()) }
}

func TestRetryableWriteRetriesOnceOnTransientError(t *testing.T) {
	topo, closeFn := standaloneTopology(t)
	defer closeFn()

	pool := session.NewPool()
	sess := session.NewClientSession(pool, session.Explicit)
	defer sess.EndSession()

	rt := &fakeRoundTripper{errs: []error{transientError{}, nil}}

	build := func(txnNumber int64, willRetry bool) Command {
		return Command{Name: "insert", TxnNumber: txnNumber, WillRetry: willRetry, Session: sess, Retryable: true}
	}

	_, err := topo.RetryableWrite(context.Background(), WriteSelector(), sess, true, build, rt, classifyTransient)
	require.NoError(t, err)
	require.Len(t, rt.attempts, 2)
	require.False(t, rt.attempts[0].WillRetry)
	require.True(t, rt.attempts[1].WillRetry)
	require.Equal(t, rt.attempts[0].TxnNumber, rt.attempts[1].TxnNumber)
}

func TestRetryableWriteDoesNotRetryOnPermanentError(t *testing.T) {
	topo, closeFn := standaloneTopology(t)
	defer closeFn()

	pool := session.NewPool()
	sess := session.NewClientSession(pool, session.Explicit)
	defer sess.EndSession()

	rt := &fakeRoundTripper{errs: []error{permanentError{}}}
	build := func(txnNumber int64, willRetry bool) Command {
		return Command{Name: "insert", TxnNumber: txnNumber, WillRetry: willRetry, Session: sess, Retryable: true}
	}

	_, err := topo.RetryableWrite(context.Background(), WriteSelector(), sess, true, build, rt, classifyTransient)
	require.Error(t, err)
	require.Len(t, rt.attempts, 1)
}

func TestRetryableWriteNotRetriedWhenCallerDisallows(t *testing.T) {
	topo, closeFn := standaloneTopology(t)
	defer closeFn()

	pool := session.NewPool()
	sess := session.NewClientSession(pool, session.Explicit)
	defer sess.EndSession()

	rt := &fakeRoundTripper{errs: []error{transientError{}}}
	build := func(txnNumber int64, willRetry bool) Command {
		return Command{Name: "insert", TxnNumber: txnNumber, WillRetry: willRetry, Session: sess}
	}

	_, err := topo.RetryableWrite(context.Background(), WriteSelector(), sess, false, build, rt, classifyTransient)
	require.Error(t, err)
	require.Len(t, rt.attempts, 1)
}

func TestCloseDrainsSessionsBeforeTopologyClosed(t *testing.T) {
	lst := int64(30)
	transport := newScriptedTransport()
	transport.set("a:1", &description.IsMasterResponse{
		OK: true, IsMaster: true, LogicalSessionTimeoutMinutes: &lst,
	})

	var sessions []*session.Client
	var allEndedWhenTopologyClosedFired bool

	monitor := &event.Monitor{
		TopologyClosed: func(*event.TopologyClosedEvent) {
			allEndedWhenTopologyClosedFired = true
			for _, sess := range sessions {
				if !sess.Ended() {
					allEndedWhenTopologyClosedFired = false
				}
			}
		},
	}

	topo, err := New(
		WithSeedList("a:1"),
		WithHeartbeatFunc(transport.heartbeat),
		WithHeartbeatInterval(20*time.Millisecond),
		WithMonitor(monitor),
	)
	require.NoError(t, err)
	waitForType(t, topo, description.Single, 2*time.Second)
	require.True(t, topo.HasSessionSupport())

	const sessionCount = 2
	sessions = make([]*session.Client, sessionCount)
	for i := range sessions {
		sess, err := topo.StartSession(session.Explicit)
		require.NoError(t, err)
		sessions[i] = sess
	}

	topo.sessionsMu.Lock()
	require.Len(t, topo.activeSessions, sessionCount)
	topo.sessionsMu.Unlock()

	require.NoError(t, topo.Close(context.Background()))

	require.True(t, allEndedWhenTopologyClosedFired)
	for _, sess := range sessions {
		require.True(t, sess.Ended())
	}
	topo.sessionsMu.Lock()
	require.Empty(t, topo.activeSessions)
	topo.sessionsMu.Unlock()
	require.Equal(t, 0, topo.sessionPool.Len())

	require.NoError(t, topo.Close(context.Background()))
}
