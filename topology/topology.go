// Package topology implements the Topology Core: it discovers a MongoDB
// deployment from a seed list, keeps a live description.Topology up to
// date by monitoring each member, selects servers against that
// description under a deadline, and dispatches commands (with retryable
// writes) against the selected server — all independent of any concrete
// wire protocol, which callers supply via HeartbeatFunc and RoundTripper.
package topology

import (
	"context"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/event"
	"github.com/ikmak/topologycore/session"
)

// Selector narrows a list of candidate servers down to the ones eligible
// for an operation, given the topology description they were drawn from.
// readpref.Selector and readpref-free selectors such as WriteSelector
// both have this shape.
type Selector func(description.Topology, []description.Server) ([]description.Server, error)

// WriteSelector returns every server capable of accepting writes: the
// primary in a replica set, the single server in Single mode, or a mongos
// in a sharded cluster.
func WriteSelector() Selector {
	return func(t description.Topology, candidates []description.Server) ([]description.Server, error) {
		if t.Type == description.Single {
			return candidates, nil
		}
		var result []description.Server
		for _, c := range candidates {
			switch c.Type {
			case description.RSPrimary, description.Standalone, description.Mongos:
				result = append(result, c)
			}
		}
		return result, nil
	}
}

// Topology is the actor owning a deployment's canonical description. All
// mutation happens on a single goroutine; every other method either reads
// an atomically-stored snapshot or sends into a channel the actor drains.
type Topology struct {
	cfg *config
	id  uuid.UUID

	changes chan description.Server

	descMu sync.RWMutex
	desc   description.Topology

	serversMu sync.Mutex
	servers   map[address.Address]*server

	subMu     sync.Mutex
	nextSubID int64
	subs      map[int64]chan description.Topology

	sessionPool *session.Pool

	sessionsMu     sync.Mutex
	activeSessions map[uuid.UUID]*session.Client

	done      chan struct{}
	closeOnce sync.Once
}

// New starts discovering and monitoring a deployment according to opts.
// WithHeartbeatFunc must be supplied.
func New(opts ...Option) (*Topology, error) {
	cfg := newConfig(opts...)
	if cfg.heartbeat == nil {
		return nil, errNoHeartbeatFunc
	}

	t := &Topology{
		cfg:            cfg,
		id:             uuid.New(),
		changes:        make(chan description.Server),
		servers:        make(map[address.Address]*server),
		subs:           make(map[int64]chan description.Topology),
		sessionPool:    session.NewPool(),
		activeSessions: make(map[uuid.UUID]*session.Client),
		done:           make(chan struct{}),
	}

	t.desc = description.New(cfg.seedList, cfg.replicaSetName)
	if cfg.mode == SingleMode {
		// Fix the type to Single up front rather than waiting for the
		// first report; from then on applyToSingle records every report
		// for the seeds as-is, without discovering further members.
		t.desc.Type = description.Single
	}

	t.emitTopologyOpening()
	for _, addr := range cfg.seedList {
		t.startMonitoring(addr)
	}

	go t.run()
	return t, nil
}

var errNoHeartbeatFunc = &configError{"topology: WithHeartbeatFunc is required"}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func (t *Topology) run() {
	for {
		select {
		case sd := <-t.changes:
			t.apply(sd)
		case <-t.done:
			return
		}
	}
}

func (t *Topology) apply(sd description.Server) {
	t.descMu.Lock()
	old := t.desc
	newDesc := old.Update(sd)
	t.desc = newDesc
	t.descMu.Unlock()

	if prev, ok := old.Server(sd.Address); !ok || !reflect.DeepEqual(prev, sd) {
		t.emitServerDescriptionChanged(sd.Address, prev, sd)
	}

	diff := diffServers(old.Addresses(), newDesc.Addresses())
	for _, addr := range diff.Removed {
		t.stopMonitoring(addr)
	}
	for _, addr := range diff.Added {
		t.startMonitoring(addr)
	}

	if newDesc.LogicalSessionTimeoutMinutes != nil {
		t.sessionPool.SetTimeout(uint32(*newDesc.LogicalSessionTimeoutMinutes))
	}

	t.emitTopologyDescriptionChanged(old, newDesc)
	t.publish(newDesc)

	if median, ok := t.medianRTT(); ok {
		t.cfg.logger.WithFields(logrus.Fields{"topology": t.id, "medianRTT": median}).Debug("latency window updated")
	}
}

func (t *Topology) publish(d description.Topology) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- d
	}
}

func (t *Topology) startMonitoring(addr address.Address) {
	t.serversMu.Lock()
	defer t.serversMu.Unlock()
	if _, ok := t.servers[addr]; ok {
		return
	}
	s := startServer(addr, t.cfg)
	t.servers[addr] = s
	t.emitServerOpening(addr)

	ch, _ := s.subscribe()
	go func() {
		for sd := range ch {
			select {
			case t.changes <- sd:
			case <-t.done:
				return
			}
		}
	}()
}

func (t *Topology) stopMonitoring(addr address.Address) {
	t.serversMu.Lock()
	s, ok := t.servers[addr]
	if ok {
		delete(t.servers, addr)
	}
	t.serversMu.Unlock()
	if !ok {
		return
	}
	s.stop()
	t.emitServerClosed(addr)
}

// Description returns the current topology snapshot.
func (t *Topology) Description() description.Topology {
	t.descMu.RLock()
	defer t.descMu.RUnlock()
	return t.desc
}

// Subscribe returns a channel receiving every updated description, along
// with a function to cancel the subscription. The channel is
// pre-populated with the current description and has a buffer of one: a
// slow reader sees only the latest topology, never a backlog.
func (t *Topology) Subscribe() (<-chan description.Topology, func()) {
	ch := make(chan description.Topology, 1)
	ch <- t.Description()

	t.subMu.Lock()
	t.nextSubID++
	id := t.nextSubID
	t.subs[id] = ch
	t.subMu.Unlock()

	return ch, func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		if _, ok := t.subs[id]; ok {
			close(ch)
			delete(t.subs, id)
		}
	}
}

// RequestImmediateCheck asks every monitored server to heartbeat right
// away instead of waiting out its interval.
func (t *Topology) RequestImmediateCheck() {
	t.serversMu.Lock()
	defer t.serversMu.Unlock()
	for _, s := range t.servers {
		s.requestImmediateCheck()
	}
}

// SelectServer blocks until a server matching sel appears in the
// topology, ctx is done, the server-selection timeout elapses, or the
// topology is closed, whichever happens first. The timeout is armed once
// per call: neither a re-evaluation after a description change nor the
// immediate heartbeat forced when every candidate is rejected resets it.
// Once Close has been called it returns ErrTopologyClosed.
func (t *Topology) SelectServer(ctx context.Context, sel Selector) (address.Address, error) {
	updates, cancel := t.Subscribe()
	defer cancel()

	timer := time.NewTimer(t.cfg.serverSelectionTimeout)
	defer timer.Stop()

	for {
		select {
		case <-t.done:
			return "", ErrTopologyClosed
		default:
		}

		desc := t.Description()
		candidates, err := sel(desc, desc.Servers())
		if err != nil {
			return "", err
		}
		if len(candidates) > 0 {
			return candidates[pseudoRandomIndex(len(candidates))].Address, nil
		}

		t.RequestImmediateCheck()

		select {
		case <-ctx.Done():
			return "", &ServerSelectionError{Snapshot: desc, Cause: ctx.Err()}
		case <-t.done:
			return "", ErrTopologyClosed
		case <-updates:
			// topology changed; loop and re-evaluate without resetting
			// the deadline.
		case <-timer.C:
			return "", &ServerSelectionError{Snapshot: desc, Cause: ErrServerSelectionTimeout}
		}
	}
}

// pseudoRandomIndex picks an index in [0,n) uniformly at random from the
// shared math/rand source rather than one per Topology, spreading load
// across equally-suitable candidates.
func pseudoRandomIndex(n int) int {
	if n == 1 {
		return 0
	}
	return rand.Intn(n)
}

// StartSession leases a client session from the topology's session pool
// and tracks it in the active set until its ended notification fires. It
// returns ErrSessionsNotSupported if the deployment has not reported a
// logicalSessionTimeoutMinutes.
func (t *Topology) StartSession(typ session.Type) (*session.Client, error) {
	if !t.HasSessionSupport() {
		return nil, ErrSessionsNotSupported
	}
	sess := session.NewClientSession(t.sessionPool, typ)
	id := sess.SessionID()

	t.sessionsMu.Lock()
	t.activeSessions[id] = sess
	t.sessionsMu.Unlock()

	sess.OnEnded(func() {
		t.sessionsMu.Lock()
		delete(t.activeSessions, id)
		t.sessionsMu.Unlock()
	})

	return sess, nil
}

// HasSessionSupport reports whether the deployment has advertised session
// support.
func (t *Topology) HasSessionSupport() bool {
	return t.Description().LogicalSessionTimeoutMinutes != nil
}

// Close drains every active session (invoking EndSession on each,
// concurrently, and waiting for all of them), terminates the session
// pool, stops every server monitor, and shuts down the actor goroutine.
// It is safe to call more than once.
func (t *Topology) Close(ctx context.Context) error {
	var closeErr error
	t.closeOnce.Do(func() {
		t.sessionsMu.Lock()
		sessions := make([]*session.Client, 0, len(t.activeSessions))
		for _, sess := range t.activeSessions {
			sessions = append(sessions, sess)
		}
		t.sessionsMu.Unlock()

		sessionGroup, _ := errgroup.WithContext(ctx)
		for _, sess := range sessions {
			sess := sess
			sessionGroup.Go(func() error {
				sess.EndSession()
				return nil
			})
		}
		_ = sessionGroup.Wait()
		t.sessionPool.Terminate()

		t.serversMu.Lock()
		addrs := make([]address.Address, 0, len(t.servers))
		for a := range t.servers {
			addrs = append(addrs, a)
		}
		t.serversMu.Unlock()

		g, _ := errgroup.WithContext(ctx)
		for _, a := range addrs {
			a := a
			g.Go(func() error {
				t.stopMonitoring(a)
				return nil
			})
		}
		closeErr = g.Wait()

		t.subMu.Lock()
		for id, ch := range t.subs {
			close(ch)
			delete(t.subs, id)
		}
		t.subMu.Unlock()

		t.emitTopologyClosed()
		close(t.done)
	})
	return closeErr
}

func (t *Topology) emitTopologyOpening() {
	t.cfg.logger.WithField("topology", t.id).Info("topology opening")
	if t.cfg.monitor == nil || t.cfg.monitor.TopologyOpening == nil {
		return
	}
	t.cfg.monitor.TopologyOpening(&event.TopologyOpeningEvent{TopologyID: t.id})
}

func (t *Topology) emitTopologyClosed() {
	t.cfg.logger.WithField("topology", t.id).Info("topology closed")
	if t.cfg.monitor == nil || t.cfg.monitor.TopologyClosed == nil {
		return
	}
	t.cfg.monitor.TopologyClosed(&event.TopologyClosedEvent{TopologyID: t.id})
}

func (t *Topology) emitTopologyDescriptionChanged(prev, next description.Topology) {
	t.cfg.logger.WithFields(logrus.Fields{"topology": t.id, "type": next.Type}).Debug("topology description changed")
	if t.cfg.monitor == nil || t.cfg.monitor.TopologyDescriptionChanged == nil {
		return
	}
	t.cfg.monitor.TopologyDescriptionChanged(&event.TopologyDescriptionChangedEvent{
		TopologyID: t.id, PreviousDescription: prev, NewDescription: next,
	})
}

func (t *Topology) emitServerOpening(addr address.Address) {
	if t.cfg.monitor == nil || t.cfg.monitor.ServerOpening == nil {
		return
	}
	t.cfg.monitor.ServerOpening(&event.ServerOpeningEvent{Address: addr, TopologyID: t.id})
}

func (t *Topology) emitServerClosed(addr address.Address) {
	if t.cfg.monitor == nil || t.cfg.monitor.ServerClosed == nil {
		return
	}
	t.cfg.monitor.ServerClosed(&event.ServerClosedEvent{Address: addr, TopologyID: t.id})
}

func (t *Topology) emitServerDescriptionChanged(addr address.Address, prev, next description.Server) {
	if t.cfg.monitor == nil || t.cfg.monitor.ServerDescriptionChanged == nil {
		return
	}
	t.cfg.monitor.ServerDescriptionChanged(&event.ServerDescriptionChangedEvent{
		Address: addr, TopologyID: t.id, PreviousDescription: prev, NewDescription: next,
	})
}
