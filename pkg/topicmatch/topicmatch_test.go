package topicmatch

import "testing"

func mustParse(t *testing.T, s string) *Pattern {
	t.Helper()
	p, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return p
}

func TestMatchLiteral(t *testing.T) {
	p := mustParse(t, "sensors/room1/temperature")
	if !p.Match(SplitTopic("sensors/room1/temperature")) {
		t.Fatal("expected match")
	}
	if p.Match(SplitTopic("sensors/room2/temperature")) {
		t.Fatal("expected no match")
	}
}

func TestMatchPlus(t *testing.T) {
	p := mustParse(t, "sensors/+/temperature")
	if !p.Match(SplitTopic("sensors/room1/temperature")) {
		t.Fatal("expected match")
	}
	if p.Match(SplitTopic("sensors/room1/room2/temperature")) {
		t.Fatal("+ must match exactly one segment")
	}
}

func TestMatchHashTrailing(t *testing.T) {
	p := mustParse(t, "sensors/#")
	if !p.Match(SplitTopic("sensors")) {
		t.Fatal("# must match zero remaining segments")
	}
	if !p.Match(SplitTopic("sensors/room1/temperature")) {
		t.Fatal("# must match remaining segments")
	}
}

func TestParseRejectsMidHash(t *testing.T) {
	if _, err := Parse("sensors/#/temperature"); err == nil {
		t.Fatal("expected error: # not in final position")
	}
}

func TestParseRejectsPartialWildcardSegment(t *testing.T) {
	if _, err := Parse("sensors/room+1/temperature"); err == nil {
		t.Fatal("expected error: + must occupy an entire segment")
	}
}

func TestDistinctSubscriptionsDedups(t *testing.T) {
	patterns := []*Pattern{
		mustParse(t, "sensors/+/temperature"),
		mustParse(t, "sensors/+/humidity"),
		mustParse(t, "sensors/+/temperature"),
	}
	got := DistinctSubscriptions(patterns)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 distinct subscriptions", got)
	}
	if got[0] != "sensors/+/temperature" || got[1] != "sensors/+/humidity" {
		t.Fatalf("got %v, want order preserved", got)
	}
}
