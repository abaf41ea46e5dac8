package topology

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/event"
)

// Mode selects whether a Topology runs its full discovery state machine or
// talks to exactly one, pre-known server.
type Mode uint8

// Mode constants.
const (
	// AutomaticMode discovers and monitors every member of the
	// deployment, starting from the configured seed list.
	AutomaticMode Mode = iota
	// SingleMode talks to exactly one server without discovery.
	SingleMode
)

// HeartbeatFunc performs one isMaster/hello round trip against addr. The
// wire encoding and connection management needed to implement this are
// outside this package's scope — callers supply it.
type HeartbeatFunc func(ctx context.Context, addr address.Address) (*description.IsMasterResponse, error)

func newConfig(opts ...Option) *config {
	cfg := &config{
		seedList:               []address.Address{address.Address("localhost:27017").Canonicalize()},
		serverSelectionTimeout: 30 * time.Second,
		heartbeatInterval:      10 * time.Second,
		logger:                 logrus.StandardLogger(),
	}
	cfg.apply(opts...)
	return cfg
}

type config struct {
	mode                   Mode
	replicaSetName         string
	seedList               []address.Address
	serverSelectionTimeout time.Duration
	heartbeatInterval      time.Duration
	heartbeat              HeartbeatFunc
	monitor                *event.Monitor
	logger                 *logrus.Logger
}

func (c *config) apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option configures a Topology.
type Option func(*config)

// WithSeedList sets the initial addresses used to discover the rest of
// the deployment.
func WithSeedList(addrs ...address.Address) Option {
	return func(c *config) {
		c.seedList = make([]address.Address, len(addrs))
		for i, a := range addrs {
			c.seedList[i] = a.Canonicalize()
		}
	}
}

// WithMode sets the discovery mode.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithReplicaSetName pins the topology to a specific replica set name.
func WithReplicaSetName(name string) Option {
	return func(c *config) { c.replicaSetName = name }
}

// WithServerSelectionTimeout bounds how long SelectServer will wait for a
// suitable server to appear.
func WithServerSelectionTimeout(d time.Duration) Option {
	return func(c *config) { c.serverSelectionTimeout = d }
}

// WithHeartbeatInterval sets the steady-state delay between heartbeats to
// each server.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *config) { c.heartbeatInterval = d }
}

// WithHeartbeatFunc supplies the transport used to perform isMaster/hello
// round trips. Required — there is no usable default.
func WithHeartbeatFunc(fn HeartbeatFunc) Option {
	return func(c *config) { c.heartbeat = fn }
}

// WithMonitor registers callbacks for SDAM events as the topology and its
// servers change state.
func WithMonitor(m *event.Monitor) Option {
	return func(c *config) { c.monitor = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) { c.logger = l }
}
