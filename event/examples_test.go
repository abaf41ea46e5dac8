package event_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ikmak/topologycore/event"
)

func TestMergeCallsBothMonitors(t *testing.T) {
	var calls []string

	a := &event.Monitor{
		TopologyOpening: func(*event.TopologyOpeningEvent) { calls = append(calls, "a") },
	}
	b := &event.Monitor{
		TopologyOpening: func(*event.TopologyOpeningEvent) { calls = append(calls, "b") },
	}

	merged := event.Merge(a, b)
	merged.TopologyOpening(&event.TopologyOpeningEvent{TopologyID: uuid.New()})

	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fatalf("got %v, want [a b]", calls)
	}
}

func TestMergeWithNilReturnsOther(t *testing.T) {
	b := &event.Monitor{}
	if event.Merge(nil, b) != b {
		t.Fatalf("Merge(nil, b) should return b")
	}
	if event.Merge(b, nil) != b {
		t.Fatalf("Merge(b, nil) should return b")
	}
}

func TestMergeTolerantOfMissingCallbacks(t *testing.T) {
	called := false
	a := &event.Monitor{}
	b := &event.Monitor{
		ServerOpening: func(*event.ServerOpeningEvent) { called = true },
	}

	merged := event.Merge(a, b)
	merged.ServerOpening(&event.ServerOpeningEvent{})

	if !called {
		t.Fatalf("merged monitor should still invoke b's callback when a has none")
	}
	if merged.ServerClosed != nil {
		t.Fatalf("merged monitor should leave unset callbacks nil")
	}
}
