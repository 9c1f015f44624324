// Package crongate implements the stateful schedule gate that decides
// whether a rule with a `schedule` is allowed to fire for the message
// currently being processed (spec.md §4.5).
//
// This is deliberately not a timer: the gate only evaluates when a
// message arrives. It fires on the first message observed at or after
// the next scheduled boundary since its last firing, so a quiet topic
// can miss boundaries entirely — including its very first boundary, if
// the gate's first observed message already arrives after it. A
// ticker-driven scheduler would fire on schedule regardless of traffic,
// which is exactly the behavior this type does not implement.
package crongate

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule wraps a parsed cron expression. Only Next is used from
// robfig/cron/v3 — its own ticker-based Run loop is never invoked, since
// firing decisions are driven by message arrival, not wall-clock ticks.
type Schedule struct {
	raw string
	sch cron.Schedule
}

// ParseSchedule parses a 5- or 6-field cron expression (6-field includes
// a leading seconds field).
func ParseSchedule(expr string) (*Schedule, error) {
	sch, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("crongate: invalid schedule %q: %w", expr, err)
	}
	return &Schedule{raw: expr, sch: sch}, nil
}

// atOrAfter returns the earliest scheduled instant that is >= t.
// robfig/cron's Schedule.Next is exclusive (strictly greater than its
// argument), so at-or-after is computed by probing one nanosecond
// earlier.
func atOrAfter(sch cron.Schedule, t time.Time) time.Time {
	return sch.Next(t.Add(-time.Nanosecond))
}

// Gate is the per-rule stateful firing filter. The next scheduled
// boundary is computed lazily on the first ShouldFire call, anchored to
// that call's own `now`: a gate that has never fired has no basis for
// "since" other than the moment it is first asked, so any boundary
// already behind that moment is simply missed, same as a boundary
// missed while the topic was quiet.
type Gate struct {
	schedule *Schedule
	next     time.Time
	hasNext  bool
	lastFire time.Time
}

// NewGate constructs a Gate bound to a parsed Schedule.
func NewGate(schedule *Schedule) *Gate {
	return &Gate{schedule: schedule}
}

// ShouldFire reports whether the gate fires for a message observed at
// now, and if so advances last_fire to now and arms the next boundary.
func (g *Gate) ShouldFire(now time.Time) bool {
	if !g.hasNext {
		g.next = atOrAfter(g.schedule.sch, now)
		g.hasNext = true
	}
	if now.Before(g.next) {
		return false
	}
	g.lastFire = now
	g.next = g.schedule.sch.Next(now)
	return true
}

// LastFire returns the last instant the gate fired, or the zero time if
// it never has.
func (g *Gate) LastFire() time.Time {
	return g.lastFire
}
