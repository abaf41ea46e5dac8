package topology

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/ikmak/topologycore/address"
	"github.com/ikmak/topologycore/description"
	"github.com/ikmak/topologycore/event"
)

// minHeartbeatInterval is the shortest gap ever allowed between two
// heartbeats to the same server, even when RequestImmediateCheck is
// called repeatedly.
const minHeartbeatInterval = 500 * time.Millisecond

// server runs the heartbeat loop for a single address: on its own
// goroutine, it calls the configured HeartbeatFunc at cfg.heartbeatInterval
// (or sooner, on RequestImmediateCheck, rate-limited to
// minHeartbeatInterval), keeps an EWMA of the round-trip time, and
// publishes every resulting description.Server to subscribers.
type server struct {
	addr address.Address
	cfg  *config

	mu          sync.Mutex
	desc        description.Server
	subscribers map[int64]chan description.Server
	nextSubID   int64
	closed      bool

	checkNow chan struct{}
	done     chan struct{}

	averageRTT    time.Duration
	averageRTTSet bool

	backoff *backoff.ExponentialBackOff
}

func startServer(addr address.Address, cfg *config) *server {
	s := &server{
		addr:        addr,
		cfg:         cfg,
		desc:        description.Server{Address: addr, Type: description.Unknown},
		subscribers: make(map[int64]chan description.Server),
		checkNow:    make(chan struct{}, 1),
		done:        make(chan struct{}),
		backoff:     newReconnectBackoff(),
	}
	go s.run()
	return s
}

func newReconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minHeartbeatInterval
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func (s *server) run() {
	heartbeatTimer := time.NewTimer(0)
	rateLimit := time.NewTimer(0)
	defer heartbeatTimer.Stop()
	defer rateLimit.Stop()

	update := func() {
		<-rateLimit.C

		desc := s.heartbeat()

		s.mu.Lock()
		prev := s.desc
		s.desc = desc
		for _, ch := range s.subscribers {
			select {
			case <-ch:
			default:
			}
			ch <- desc
		}
		s.mu.Unlock()

		interval := s.cfg.heartbeatInterval
		if desc.LastError != nil && prev.LastError == nil {
			interval = s.backoff.NextBackOff()
		} else if desc.LastError == nil {
			s.backoff.Reset()
		}

		rateLimit.Reset(minHeartbeatInterval)
		heartbeatTimer.Reset(interval)
	}

	for {
		select {
		case <-heartbeatTimer.C:
			update()
		case <-s.checkNow:
			update()
		case <-s.done:
			s.mu.Lock()
			for id, ch := range s.subscribers {
				close(ch)
				delete(s.subscribers, id)
			}
			s.closed = true
			s.mu.Unlock()
			return
		}
	}
}

func (s *server) heartbeat() description.Server {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.emitHeartbeatStarted()

	start := time.Now()
	resp, err := s.cfg.heartbeat(ctx, s.addr)
	elapsed := time.Since(start)

	if err != nil {
		s.emitHeartbeatFailed(elapsed, err)
		s.averageRTTSet = false
		return description.Server{Address: s.addr, Type: description.Unknown, LastError: err}
	}

	d := description.NewServer(s.addr, resp, nil)
	d = d.SetAverageRTT(s.updateAverageRTT(elapsed))
	d.HeartbeatInterval = s.cfg.heartbeatInterval

	s.emitHeartbeatSucceeded(elapsed, d)
	return d
}

// updateAverageRTT folds the latest round-trip sample into an
// exponentially-weighted moving average with smoothing factor 0.2: each
// new sample contributes 20% and the previous average 80%.
func (s *server) updateAverageRTT(sample time.Duration) time.Duration {
	const alpha = 0.2
	if !s.averageRTTSet {
		s.averageRTT = sample
		s.averageRTTSet = true
	} else {
		s.averageRTT = time.Duration(alpha*float64(sample) + (1-alpha)*float64(s.averageRTT))
	}
	return s.averageRTT
}

func (s *server) description() description.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// subscribe returns a channel that receives every new description.Server
// published for this server, pre-populated with the current one.
func (s *server) subscribe() (<-chan description.Server, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan description.Server, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- s.desc

	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			close(ch)
			delete(s.subscribers, id)
		}
	}
}

func (s *server) requestImmediateCheck() {
	select {
	case s.checkNow <- struct{}{}:
	default:
	}
}

func (s *server) stop() {
	close(s.done)
}

func (s *server) emitHeartbeatStarted() {
	if s.cfg.monitor == nil || s.cfg.monitor.ServerHeartbeatStarted == nil {
		return
	}
	s.cfg.monitor.ServerHeartbeatStarted(&event.ServerHeartbeatStartedEvent{Address: s.addr})
}

func (s *server) emitHeartbeatSucceeded(d time.Duration, desc description.Server) {
	s.cfg.logger.WithFields(logrus.Fields{"address": s.addr, "rtt": d}).Debug("heartbeat succeeded")
	if s.cfg.monitor == nil || s.cfg.monitor.ServerHeartbeatSucceeded == nil {
		return
	}
	s.cfg.monitor.ServerHeartbeatSucceeded(&event.ServerHeartbeatSucceededEvent{Address: s.addr, Duration: d, Reply: desc})
}

func (s *server) emitHeartbeatFailed(d time.Duration, err error) {
	s.cfg.logger.WithFields(logrus.Fields{"address": s.addr, "error": err}).Warn("heartbeat failed")
	if s.cfg.monitor == nil || s.cfg.monitor.ServerHeartbeatFailed == nil {
		return
	}
	s.cfg.monitor.ServerHeartbeatFailed(&event.ServerHeartbeatFailedEvent{Address: s.addr, Duration: d, Failure: err})
}
