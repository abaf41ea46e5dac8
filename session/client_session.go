package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Type describes whether a session was created explicitly by a caller or
// implicitly on its behalf for a single operation.
type Type uint8

// Valid Type values.
const (
	Explicit Type = iota
	Implicit
)

// ErrSessionEnded is returned by any operation attempted on a session
// after EndSession has been called on it.
var ErrSessionEnded = errors.New("session: use of ended session")

// ErrAlreadyInTransaction is returned by StartTransaction when a
// transaction is already in progress on this session.
var ErrAlreadyInTransaction = errors.New("session: transaction already in progress")

// TransactionState is the state of a session's current transaction, if any.
type TransactionState uint8

// TransactionState values.
const (
	None TransactionState = iota
	Starting
	InProgress
	Committed
	Aborted
)

// Client is a logical session bound to a pool-leased ServerSession. It
// tracks the highest cluster time this client has observed, exposed
// through ClusterTime; attaching it to outgoing commands is left to the
// code that encodes them.
type Client struct {
	SessionType Type

	mu               sync.Mutex
	clusterTime      ClusterTime
	pool             *Pool
	serverSession    *ServerSession
	terminated       bool
	txnNumber        int64
	TransactionState TransactionState
	onEnded          func()
}

// NewClientSession leases a ServerSession from pool and wraps it in a
// Client of the given Type.
func NewClientSession(pool *Pool, sessionType Type) *Client {
	return &Client{
		SessionType:   sessionType,
		pool:          pool,
		serverSession: pool.GetSession(),
	}
}

// OnEnded registers fn to be called exactly once, the moment EndSession
// actually ends the session (not on a redundant second call). A topology
// uses this to drop the session from its active set.
func (c *Client) OnEnded(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEnded = fn
}

// InTransaction reports whether this session currently has a transaction
// in progress. Retryable-write dispatch must not retry a write issued
// inside a transaction.
func (c *Client) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.TransactionState == Starting || c.TransactionState == InProgress
}

// StartTransaction moves the session into the Starting state.
func (c *Client) StartTransaction() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TransactionState == Starting || c.TransactionState == InProgress {
		return ErrAlreadyInTransaction
	}
	c.TransactionState = Starting
	return nil
}

// AdvanceTransactionState moves a Starting transaction to InProgress,
// once the first operation within it has been dispatched.
func (c *Client) AdvanceTransactionState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TransactionState == Starting {
		c.TransactionState = InProgress
	}
}

// CommitTransaction ends the current transaction successfully.
func (c *Client) CommitTransaction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TransactionState = Committed
}

// AbortTransaction ends the current transaction unsuccessfully.
func (c *Client) AbortTransaction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TransactionState = Aborted
}

// SessionID returns the identifier of the underlying server session.
func (c *Client) SessionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverSession.ID
}

// ClusterTime returns the highest cluster time this session has observed.
func (c *Client) ClusterTime() ClusterTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clusterTime
}

// AdvanceClusterTime folds t into the session's cluster time.
func (c *Client) AdvanceClusterTime(t ClusterTime) {
	c.mu.Lock()
	c.clusterTime = MaxClusterTime(c.clusterTime, t)
	c.mu.Unlock()
}

// NextTxnNumber advances and returns the session's transaction number.
// It must be called exactly once per logical write operation, before the
// first attempt — a retry of that same operation reuses the number
// returned here rather than calling NextTxnNumber again.
func (c *Client) NextTxnNumber() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txnNumber++
	return c.txnNumber
}

// UpdateUseTime must be called whenever this session is used to send a
// command to a server, so the pool doesn't treat it as idle.
func (c *Client) UpdateUseTime() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return ErrSessionEnded
	}
	c.serverSession.updateUseTime()
	return nil
}

// EndSession releases the underlying ServerSession back to the pool and
// fires the session's ended notification. Calling it more than once is a
// no-op; the notification fires only on the call that actually ends it.
func (c *Client) EndSession() {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return
	}
	c.terminated = true
	c.pool.ReturnSession(c.serverSession)
	onEnded := c.onEnded
	c.mu.Unlock()

	if onEnded != nil {
		onEnded()
	}
}

// Ended reports whether EndSession has already been called.
func (c *Client) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}
