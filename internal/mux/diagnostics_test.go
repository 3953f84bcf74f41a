package mux

import (
	"testing"
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

type recordingSink struct {
	statuses []ports.Status
}

func (s *recordingSink) Report(st ports.Status) {
	s.statuses = append(s.statuses, st)
}

func TestSnapshotContents(t *testing.T) {
	h := newHarness(t, domain.ShapePlain)
	h.addVel(t, "nav", 10, 200*time.Millisecond)
	h.addVel(t, "joy", 100, time.Second)
	h.addLock(t, "estop", 255, 500*time.Millisecond)

	h.send("nav", 0.2, 0)
	h.arb.OnLock("estop", domain.LockSignal{Engaged: false}, h.base)

	// nav is stale at +300ms, joy never received, estop fresh disengaged.
	st := h.arb.Snapshot(h.base.Add(300 * time.Millisecond))

	if len(st.Velocities) != 2 || len(st.Locks) != 1 {
		t.Fatalf("unexpected snapshot sizes: %d velocities, %d locks", len(st.Velocities), len(st.Locks))
	}

	nav := st.Velocities[0]
	if nav.Name != "nav" || !nav.Received || !nav.Stale || nav.Age != 300*time.Millisecond {
		t.Fatalf("unexpected nav status: %+v", nav)
	}
	if nav.Condition() != ports.ConditionStale {
		t.Fatalf("expected nav STALE, got %s", nav.Condition())
	}

	joy := st.Velocities[1]
	if joy.Received || joy.Condition() != ports.ConditionNeverReceived {
		t.Fatalf("unexpected joy status: %+v", joy)
	}

	estop := st.Locks[0]
	if estop.Condition() != ports.ConditionOK || estop.Engaged {
		t.Fatalf("unexpected estop status: %+v", estop)
	}

	if st.LockPriority != 0 {
		t.Fatalf("expected lock priority 0, got %d", st.LockPriority)
	}
	if st.Winner != "" {
		t.Fatalf("expected no winner (nav stale, joy silent), got %q", st.Winner)
	}
}

func TestSnapshotWinnerAndLockPriority(t *testing.T) {
	h := newHarness(t, domain.ShapePlain)
	h.addVel(t, "nav", 10, time.Second)
	h.addVel(t, "joy", 100, time.Second)
	h.addLock(t, "pause", 32, time.Second)

	h.send("nav", 0.2, 0)
	h.send("joy", 0.1, 10*time.Millisecond)
	h.arb.OnLock("pause", domain.LockSignal{Engaged: true}, h.base)

	st := h.arb.Snapshot(h.base.Add(20 * time.Millisecond))
	if st.LockPriority != 32 {
		t.Fatalf("expected lock priority 32, got %d", st.LockPriority)
	}
	if st.Winner != "joy" {
		t.Fatalf("expected joy to win, got %q", st.Winner)
	}
	if !st.Locks[0].Engaged {
		t.Fatalf("expected pause reported engaged")
	}
}

func TestReporterTickHandsSnapshotToSink(t *testing.T) {
	h := newHarness(t, domain.ShapePlain)
	h.addVel(t, "nav", 10, time.Second)
	h.send("nav", 0.2, 0)

	sink := &recordingSink{}
	rep := NewReporter(h.arb, sink)

	at := h.base.Add(50 * time.Millisecond)
	rep.Tick(at)
	rep.Tick(at.Add(time.Second))

	if len(sink.statuses) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(sink.statuses))
	}
	if sink.statuses[0].TakenAt != at {
		t.Fatalf("expected snapshot instant %s, got %s", at, sink.statuses[0].TakenAt)
	}
	if sink.statuses[0].Winner != "nav" {
		t.Fatalf("expected winner nav, got %q", sink.statuses[0].Winner)
	}
}

func TestReporterNilSinkIsNoop(t *testing.T) {
	h := newHarness(t, domain.ShapePlain)
	rep := NewReporter(h.arb, nil)
	rep.Tick(h.base) // must not panic
}
