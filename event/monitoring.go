// Package event defines the typed notifications emitted while a topology
// is discovered and monitored. Callers observe them through a Monitor, a
// struct of optional callback fields — there is no generic pub/sub bus,
// matching how the rest of this codebase favors direct function values
// over an event-bus abstraction.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
)

// ServerDescriptionChangedEvent is generated whenever a server's
// description changes, even if the change doesn't affect the server's type.
type ServerDescriptionChangedEvent struct {
	Address             address.Address
	TopologyID          uuid.UUID
	PreviousDescription description.Server
	NewDescription      description.Server
}

// ServerOpeningEvent is generated when a server is added to a topology.
type ServerOpeningEvent struct {
	Address    address.Address
	TopologyID uuid.UUID
}

// ServerClosedEvent is generated when a server is removed from a topology.
type ServerClosedEvent struct {
	Address    address.Address
	TopologyID uuid.UUID
}

// TopologyDescriptionChangedEvent is generated whenever a topology's
// description changes.
type TopologyDescriptionChangedEvent struct {
	TopologyID          uuid.UUID
	PreviousDescription description.Topology
	NewDescription      description.Topology
}

// TopologyOpeningEvent is generated when a topology is initialized.
type TopologyOpeningEvent struct {
	TopologyID uuid.UUID
}

// TopologyClosedEvent is generated when a topology is closed.
type TopologyClosedEvent struct {
	TopologyID uuid.UUID
}

// ServerHeartbeatStartedEvent is generated when a heartbeat (isMaster) is
// sent to a server.
type ServerHeartbeatStartedEvent struct {
	Address address.Address
	Awaited bool
}

// ServerHeartbeatSucceededEvent is generated when a heartbeat succeeds.
type ServerHeartbeatSucceededEvent struct {
	Address  address.Address
	Duration time.Duration
	Reply    description.Server
	Awaited  bool
}

// ServerHeartbeatFailedEvent is generated when a heartbeat fails.
type ServerHeartbeatFailedEvent struct {
	Address  address.Address
	Duration time.Duration
	Failure  error
	Awaited  bool
}

// Monitor bundles the callbacks a caller wants invoked as topology and
// server events occur. Every field is optional; a nil field is simply not
// called. Callbacks run synchronously on the goroutine that raised the
// event — the topology's actor goroutine, a server's heartbeat goroutine,
// or the goroutine calling New or Close — so they must not block or call
// back into the topology they came from.
type Monitor struct {
	ServerDescriptionChanged   func(*ServerDescriptionChangedEvent)
	ServerOpening              func(*ServerOpeningEvent)
	ServerClosed               func(*ServerClosedEvent)
	TopologyDescriptionChanged func(*TopologyDescriptionChangedEvent)
	TopologyOpening            func(*TopologyOpeningEvent)
	TopologyClosed             func(*TopologyClosedEvent)
	ServerHeartbeatStarted     func(*ServerHeartbeatStartedEvent)
	ServerHeartbeatSucceeded   func(*ServerHeartbeatSucceededEvent)
	ServerHeartbeatFailed      func(*ServerHeartbeatFailedEvent)
}

// Merge returns a Monitor that invokes both m's and other's callbacks for
// every event, m's first. Either argument may be nil.
func Merge(m, other *Monitor) *Monitor {
	if m == nil {
		return other
	}
	if other == nil {
		return m
	}
	merged := &Monitor{}
	merged.ServerDescriptionChanged = mergeFunc(m.ServerDescriptionChanged, other.ServerDescriptionChanged)
	merged.ServerOpening = mergeFunc(m.ServerOpening, other.ServerOpening)
	merged.ServerClosed = mergeFunc(m.ServerClosed, other.ServerClosed)
	merged.TopologyDescriptionChanged = mergeFunc(m.TopologyDescriptionChanged, other.TopologyDescriptionChanged)
	merged.TopologyOpening = mergeFunc(m.TopologyOpening, other.TopologyOpening)
	merged.TopologyClosed = mergeFunc(m.TopologyClosed, other.TopologyClosed)
	merged.ServerHeartbeatStarted = mergeFunc(m.ServerHeartbeatStarted, other.ServerHeartbeatStarted)
	merged.ServerHeartbeatSucceeded = mergeFunc(m.ServerHeartbeatSucceeded, other.ServerHeartbeatSucceeded)
	merged.ServerHeartbeatFailed = mergeFunc(m.ServerHeartbeatFailed, other.ServerHeartbeatFailed)
	return merged
}

func mergeFunc[T any](a, b func(T)) func(T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(t T) {
			a(t)
			b(t)
		}
	}
}
