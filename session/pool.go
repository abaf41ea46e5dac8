package session

import (
	"sync"

	"github.com/google/uuid"
)

// Pool is a reusable pool of server sessions, keyed only by recency: a
// session returned to the pool is handed back out first (LIFO), so a
// session under steady load keeps getting refreshed instead of expiring.
type Pool struct {
	mu             sync.Mutex
	sessions       []*ServerSession
	timeoutMinutes uint32
}

// NewPool returns an empty Pool. SetTimeout must be called once the
// deployment's logicalSessionTimeoutMinutes becomes known; until then the
// pool never treats a session as expired.
func NewPool() *Pool {
	return &Pool{}
}

// SetTimeout updates the timeout used to decide whether a pooled session
// has expired, typically driven by the topology's current
// logicalSessionTimeoutMinutes.
func (p *Pool) SetTimeout(minutes uint32) {
	p.mu.Lock()
	p.timeoutMinutes = minutes
	p.mu.Unlock()
}

// GetSession returns an unexpired session from the pool, or a freshly
// minted one if the pool is empty or every pooled session has expired.
func (p *Pool) GetSession() *ServerSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.sessions) > 0 {
		last := len(p.sessions) - 1
		ss := p.sessions[last]
		p.sessions = p.sessions[:last]
		if !ss.expired(p.timeoutMinutes) {
			return ss
		}
	}
	return newServerSession()
}

// ReturnSession gives ss back to the pool for reuse, unless it has
// already expired.
func (p *Pool) ReturnSession(ss *ServerSession) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ss.expired(p.timeoutMinutes) {
		return
	}
	p.sessions = append(p.sessions, ss)
}

// Len reports how many sessions are currently pooled, for tests and
// diagnostics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Terminate empties the pool and returns the ids of every session that
// was in it, for a caller to pass to an endSessions admin command. Unlike
// ReturnSession/GetSession this discards sessions unconditionally; it is
// meant to be called once, while a topology is closing.
func (p *Pool) Terminate() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]uuid.UUID, len(p.sessions))
	for i, ss := range p.sessions {
		ids[i] = ss.ID
	}
	p.sessions = nil
	return ids
}
