package topology

import (
	"github.com/pkg/errors"

	"github.com/ikmak/topologycore/description"
)

// ErrServerSelectionTimeout is returned by SelectServer when no suitable
// server appeared before the configured timeout elapsed.
var ErrServerSelectionTimeout = errors.New("topology: server selection timed out")

// ErrTopologyClosed is returned by SelectServer, and so by the dispatch
// methods that select through it, once Close has been called.
var ErrTopologyClosed = errors.New("topology: topology is closed")

// ErrSessionsNotSupported is returned by StartSession when the deployment
// does not report a logicalSessionTimeoutMinutes.
var ErrSessionsNotSupported = errors.New("topology: deployment does not support sessions")

// ServerSelectionError wraps a server-selection failure with the topology
// snapshot that produced it, so callers (and log lines) can see why
// nothing matched.
type ServerSelectionError struct {
	Snapshot description.Topology
	Cause    error
}

func (e *ServerSelectionError) Error() string {
	return "topology: server selection failed: " + e.Cause.Error() + "; topology: " + e.Snapshot.String()
}

func (e *ServerSelectionError) Unwrap() error { return e.Cause }
