package event_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ikmak/topologycore/event"
)

func TestMetricsTracksHeartbeats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := event.NewMetrics(reg, "topologycore_test")

	m.Monitor.ServerHeartbeatStarted(&event.ServerHeartbeatStartedEvent{Address: "a:1"})
	m.Monitor.ServerHeartbeatSucceeded(&event.ServerHeartbeatSucceededEvent{
		Address: "a:1", Duration: 5 * time.Millisecond,
	})

	got, err := testutil.GatherAndCount(reg, "topologycore_test_heartbeats_total")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("got %d heartbeats_total series, want 1", got)
	}
}

func TestMetricsServerHeartbeatFailedCountsFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := event.NewMetrics(reg, "topologycore_test")

	m.Monitor.ServerHeartbeatFailed(&event.ServerHeartbeatFailedEvent{
		Address: "a:1", Duration: time.Millisecond, Failure: errTest{},
	})

	n, err := testutil.GatherAndCount(reg, "topologycore_test_heartbeat_failures_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("got %d heartbeat_failures_total series, want 1", n)
	}
}

type errTest struct{}

func (errTest) Error() string { return "test" }
