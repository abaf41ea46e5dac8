package session

import (
	"testing"
	"time"
)

func TestMaxClusterTime(t *testing.T) {
	t1 := ClusterTime{Epoch: 10, Ordinal: 5}
	t2 := ClusterTime{Epoch: 5, Ordinal: 5}
	t3 := ClusterTime{Epoch: 5, Ordinal: 0}

	if got := MaxClusterTime(t1, t2); got != t1 {
		t.Errorf("got %v, want %v", got, t1)
	}
	if got := MaxClusterTime(t3, t2); got != t2 {
		t.Errorf("got %v, want %v", got, t2)
	}
}

func TestClusterClockAdvancesMonotonically(t *testing.T) {
	clock := &ClusterClock{}
	clock.AdvanceClusterTime(ClusterTime{Epoch: 5, Ordinal: 0})
	clock.AdvanceClusterTime(ClusterTime{Epoch: 3, Ordinal: 9})

	if got, want := clock.GetClusterTime(), (ClusterTime{Epoch: 5, Ordinal: 0}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	clock.AdvanceClusterTime(ClusterTime{Epoch: 10, Ordinal: 1})
	if got, want := clock.GetClusterTime(), (ClusterTime{Epoch: 10, Ordinal: 1}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestClientSessionAdvanceClusterTime(t *testing.T) {
	pool := NewPool()
	sess := NewClientSession(pool, Explicit)

	sess.AdvanceClusterTime(ClusterTime{Epoch: 5, Ordinal: 5})
	sess.AdvanceClusterTime(ClusterTime{Epoch: 5, Ordinal: 0})
	if got, want := sess.ClusterTime(), (ClusterTime{Epoch: 5, Ordinal: 5}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	sess.AdvanceClusterTime(ClusterTime{Epoch: 10, Ordinal: 5})
	if got, want := sess.ClusterTime(), (ClusterTime{Epoch: 10, Ordinal: 5}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	sess.EndSession()
}

func TestEndSessionReturnsSessionToPool(t *testing.T) {
	pool := NewPool()
	sess := NewClientSession(pool, Explicit)
	if pool.Len() != 0 {
		t.Fatalf("leased session should not be in the pool")
	}

	sess.EndSession()
	if pool.Len() != 1 {
		t.Fatalf("got %d pooled sessions, want 1", pool.Len())
	}

	if err := sess.UpdateUseTime(); err != ErrSessionEnded {
		t.Fatalf("got %v, want ErrSessionEnded", err)
	}

	sess.EndSession()
	if pool.Len() != 1 {
		t.Fatalf("ending a session twice must not return it twice; got %d", pool.Len())
	}
}

func TestPoolDoesNotReuseExpiredSessions(t *testing.T) {
	pool := NewPool()
	pool.SetTimeout(1)

	stale := newServerSession()
	stale.LastUsed = time.Now().Add(-10 * time.Minute)
	pool.ReturnSession(stale)

	if pool.Len() != 0 {
		t.Fatalf("expired session should have been dropped on return, got %d pooled", pool.Len())
	}

	got := pool.GetSession()
	if got.ID == stale.ID {
		t.Fatalf("GetSession must not hand back an expired session")
	}
}

func TestNextTxnNumberIncrementsMonotonically(t *testing.T) {
	pool := NewPool()
	sess := NewClientSession(pool, Explicit)

	if got := sess.NextTxnNumber(); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := sess.NextTxnNumber(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestPoolReusesSessionLIFO(t *testing.T) {
	pool := NewPool()
	first := newServerSession()
	second := newServerSession()
	pool.ReturnSession(first)
	pool.ReturnSession(second)

	if got := pool.GetSession(); got.ID != second.ID {
		t.Fatalf("GetSession should hand back the most recently returned session first")
	}
}

func TestPoolTerminateDiscardsAllSessions(t *testing.T) {
	pool := NewPool()
	first := newServerSession()
	second := newServerSession()
	pool.ReturnSession(first)
	pool.ReturnSession(second)

	ids := pool.Terminate()
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if pool.Len() != 0 {
		t.Fatalf("pool should be empty after Terminate, got %d", pool.Len())
	}
}

func TestInTransactionReflectsTransactionState(t *testing.T) {
	pool := NewPool()
	sess := NewClientSession(pool, Explicit)
	defer sess.EndSession()

	if sess.InTransaction() {
		t.Fatalf("a fresh session must not be in a transaction")
	}

	if err := sess.StartTransaction(); err != nil {
		t.Fatalf("StartTransaction: %v", err)
	}
	if !sess.InTransaction() {
		t.Fatalf("InTransaction must be true once Starting")
	}

	if err := sess.StartTransaction(); err != ErrAlreadyInTransaction {
		t.Fatalf("got %v, want ErrAlreadyInTransaction", err)
	}

	sess.AdvanceTransactionState()
	if !sess.InTransaction() {
		t.Fatalf("InTransaction must be true once InProgress")
	}

	sess.CommitTransaction()
	if sess.InTransaction() {
		t.Fatalf("InTransaction must be false once Committed")
	}

	if err := sess.StartTransaction(); err != nil {
		t.Fatalf("StartTransaction after commit: %v", err)
	}
	sess.AbortTransaction()
	if sess.InTransaction() {
		t.Fatalf("InTransaction must be false once Aborted")
	}
}

func TestOnEndedFiresOnceWhenSessionEnds(t *testing.T) {
	pool := NewPool()
	sess := NewClientSession(pool, Explicit)

	calls := 0
	sess.OnEnded(func() { calls++ })

	if sess.Ended() {
		t.Fatalf("a fresh session must not be Ended")
	}

	sess.EndSession()
	sess.EndSession()

	if !sess.Ended() {
		t.Fatalf("session should be Ended after EndSession")
	}
	if calls != 1 {
		t.Fatalf("got %d onEnded calls, want exactly 1", calls)
	}
}
