package crongate

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, expr string) *Schedule {
	t.Helper()
	s, err := ParseSchedule(expr)
	if err != nil {
		t.Fatalf("ParseSchedule(%q): %v", expr, err)
	}
	return s
}

func TestGateFiresOnFirstMessageAtOrAfterBoundary(t *testing.T) {
	sch := mustParse(t, "0 * * * *") // top of every hour
	g := NewGate(sch)

	before := time.Date(2026, 1, 1, 0, 59, 0, 0, time.UTC)
	if g.ShouldFire(before) {
		t.Fatal("should not fire before the first boundary")
	}

	atBoundary := time.Date(2026, 1, 1, 1, 0, 30, 0, time.UTC)
	if !g.ShouldFire(atBoundary) {
		t.Fatal("expected fire on first message at-or-after boundary")
	}
	if !g.LastFire().Equal(atBoundary) {
		t.Fatalf("LastFire = %v, want %v", g.LastFire(), atBoundary)
	}

	// Quiet topic: the 2:00 boundary passes unobserved. The gate still
	// only fires again once a message arrives at-or-after the next one.
	again := time.Date(2026, 1, 1, 2, 5, 0, 0, time.UTC)
	if !g.ShouldFire(again) {
		t.Fatal("expected fire once a message arrives past the next boundary")
	}
}

func TestGateDoesNotDoubleFireWithinSameBoundary(t *testing.T) {
	sch := mustParse(t, "0 * * * *")
	g := NewGate(sch)

	// First ever observation, ahead of any boundary: arms the gate but
	// does not fire.
	t0 := time.Date(2026, 1, 1, 0, 59, 0, 0, time.UTC)
	if g.ShouldFire(t0) {
		t.Fatal("should not fire on the arming observation")
	}

	t1 := time.Date(2026, 1, 1, 1, 0, 1, 0, time.UTC)
	if !g.ShouldFire(t1) {
		t.Fatal("expected fire once the boundary is crossed")
	}
	t2 := time.Date(2026, 1, 1, 1, 0, 2, 0, time.UTC)
	if g.ShouldFire(t2) {
		t.Fatal("should not fire again before the next boundary")
	}
}

func TestGateMissesBoundaryThatPrecedesItsFirstObservation(t *testing.T) {
	sch := mustParse(t, "0 * * * *")
	g := NewGate(sch)

	// The gate's very first observation already arrives a second past an
	// hour boundary nobody was watching for. That boundary is missed;
	// the gate arms for the next one instead of firing immediately.
	late := time.Date(2026, 1, 1, 1, 0, 1, 0, time.UTC)
	if g.ShouldFire(late) {
		t.Fatal("a boundary preceding the gate's first observation must not retroactively fire")
	}
}

func TestSixFieldScheduleWithSeconds(t *testing.T) {
	sch := mustParse(t, "*/30 * * * * *") // every 30 seconds
	g := NewGate(sch)

	t0 := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
	if g.ShouldFire(t0) {
		t.Fatal("should not fire on the arming observation")
	}

	t1 := time.Date(2026, 1, 1, 0, 0, 31, 0, time.UTC)
	if !g.ShouldFire(t1) {
		t.Fatal("expected fire on first message at-or-after 30s boundary")
	}
}
