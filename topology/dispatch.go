package topology

import (
	"context"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/session"
)

// Command describes one command to send to a server. The wire encoding
// and reply decoding are the RoundTripper's responsibility — this package
// only carries the bookkeeping (session, transaction number, the
// willRetry flag) that the server-selection and retry logic need to see.
type Command struct {
	Name       string
	Database   string
	Session    *session.Client
	Retryable  bool
	TxnNumber  int64
	WillRetry  bool
}

// Result is whatever a RoundTripper produced; this package never
// inspects it beyond passing it back to the caller.
type Result struct {
	Reply interface{}
}

// RoundTripper sends a fully-built Command to addr and returns its reply.
// Callers provide the concrete wire implementation.
type RoundTripper interface {
	RoundTrip(ctx context.Context, addr address.Address, cmd Command) (Result, error)
}

// RetryClassifier decides whether an error observed from a RoundTrip
// attempt is the kind of transient, retryable condition that justifies
// one silent retry (a network error, a "not writable primary" style
// state-change error), as opposed to a permanent failure that should be
// returned to the caller immediately.
type RetryClassifier func(error) bool

// Command dispatches a single, non-retryable command: select a server
// with sel, then hand the command to rt. Used for reads and for commands
// that are never eligible for the one-retry-on-transient-error policy.
func (t *Topology) Command(ctx context.Context, sel Selector, cmd Command, rt RoundTripper) (Result, error) {
	addr, err := t.SelectServer(ctx, sel)
	if err != nil {
		return Result{}, err
	}
	return rt.RoundTrip(ctx, addr, cmd)
}

// primaryPreferredSelector returns the primary if one is selectable, and
// falls back to secondaries otherwise; used for admin commands such as
// endSessions that should prefer the primary but tolerate its absence.
func primaryPreferredSelector() Selector {
	return func(t description.Topology, candidates []description.Server) ([]description.Server, error) {
		if t.Type == description.Single {
			return candidates, nil
		}
		var primary, secondaries []description.Server
		for _, c := range candidates {
			switch c.Type {
			case description.RSPrimary, description.Standalone, description.Mongos:
				primary = append(primary, c)
			case description.RSSecondary:
				secondaries = append(secondaries, c)
			}
		}
		if len(primary) > 0 {
			return primary, nil
		}
		return secondaries, nil
	}
}

// EndSessions best-effort-ends a batch of sessions: it ends each one
// locally (returning its server session to the pool) and, if rt is
// non-nil, sends a single endSessions admin command with a
// primaryPreferred selector. Any error from that command is discarded,
// per protocol — endSessions is advisory cleanup, not something a caller
// needs to react to.
func (t *Topology) EndSessions(ctx context.Context, sessions []*session.Client, rt RoundTripper) {
	for _, sess := range sessions {
		sess.EndSession()
	}
	if len(sessions) == 0 || rt == nil {
		return
	}
	cmd := Command{Name: "endSessions", Database: "admin"}
	_, _ = t.Command(ctx, primaryPreferredSelector(), cmd, rt)
}

// RetryableWrite dispatches a write that may be retried once. build is
// called to construct the Command for each attempt; it receives the
// session's transaction number (assigned once, before the first attempt,
// and held fixed across any retry) and whether this is a retry, so it can
// set the wire-level willRetry-style flag on the outgoing command.
//
// A write is actually retried only when: a session is supplied (sess is
// non-nil), the session is not in a transaction,
// the caller marked it Retryable, the first attempt's error is flagged
// transient by classify, and a server can still be selected for the
// second attempt. Anything else returns the first attempt's result
// unmodified.
func (t *Topology) RetryableWrite(
	ctx context.Context,
	sel Selector,
	sess *session.Client,
	retryable bool,
	build func(txnNumber int64, willRetry bool) Command,
	rt RoundTripper,
	classify RetryClassifier,
) (Result, error) {
	retryable = retryable && sess != nil && !sess.InTransaction()

	var txnNumber int64
	if sess != nil && retryable {
		txnNumber = sess.NextTxnNumber()
	}

	addr, err := t.SelectServer(ctx, sel)
	if err != nil {
		return Result{}, err
	}

	res, err := rt.RoundTrip(ctx, addr, build(txnNumber, false))
	if err == nil || !retryable || !classify(err) {
		return res, err
	}

	retryAddr, selErr := t.SelectServer(ctx, sel)
	if selErr != nil {
		return res, err
	}
	return rt.RoundTrip(ctx, retryAddr, build(txnNumber, true))
}
