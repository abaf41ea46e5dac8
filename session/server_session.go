package session

import (
	"time"

	"github.com/google/uuid"
)

// ServerSession is a session identifier leased from a server and tracked
// for reuse until it goes unused for too long.
type ServerSession struct {
	ID       uuid.UUID
	LastUsed time.Time
}

func newServerSession() *ServerSession {
	return &ServerSession{ID: uuid.New(), LastUsed: time.Now()}
}

func (ss *ServerSession) updateUseTime() {
	ss.LastUsed = time.Now()
}

// expired reports whether ss has gone unused long enough that the server
// will have already discarded it. A session is treated as expired once it
// has less than one minute left before becoming stale, matching the
// server's own logicalSessionTimeoutMinutes accounting.
func (ss *ServerSession) expired(timeoutMinutes uint32) bool {
	if timeoutMinutes == 0 {
		return false
	}
	timeUnused := time.Since(ss.LastUsed).Minutes()
	return timeUnused > float64(timeoutMinutes)-1
}
