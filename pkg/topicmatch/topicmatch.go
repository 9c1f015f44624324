// Package topicmatch implements MQTT topic-pattern matching against
// concrete message topics: Literal segments, single-level `+` wildcards,
// and a trailing `#` multi-level wildcard (spec.md §4.4).
package topicmatch

import (
	"fmt"
	"strings"
)

// SegmentKind identifies which alternative of Segment is populated.
type SegmentKind int

const (
	SegLiteral SegmentKind = iota
	SegPlus
	SegHash
)

// Segment is one level of a parsed topic pattern.
type Segment struct {
	Kind    SegmentKind
	Literal string
}

// Pattern is a parsed topic pattern, ready to be matched against split
// topic segments without re-parsing.
type Pattern struct {
	Raw      string
	Segments []Segment
}

// Parse validates and parses a topic pattern. A `#` segment is only
// legal as the final segment.
func Parse(pattern string) (*Pattern, error) {
	parts := strings.Split(pattern, "/")
	segs := make([]Segment, len(parts))
	for i, p := range parts {
		switch p {
		case "#":
			if i != len(parts)-1 {
				return nil, fmt.Errorf("topicmatch: %q: # must be the final segment", pattern)
			}
			segs[i] = Segment{Kind: SegHash}
		case "+":
			segs[i] = Segment{Kind: SegPlus}
		default:
			if strings.ContainsAny(p, "#+") {
				return nil, fmt.Errorf("topicmatch: %q: # and + must occupy an entire segment", pattern)
			}
			segs[i] = Segment{Kind: SegLiteral, Literal: p}
		}
	}
	return &Pattern{Raw: pattern, Segments: segs}, nil
}

// SplitTopic splits a concrete topic into its slash-delimited segments.
func SplitTopic(topic string) []string {
	return strings.Split(topic, "/")
}

// Match reports whether segs (a concrete topic's segments) satisfies p.
func (p *Pattern) Match(segs []string) bool {
	return matchFrom(p.Segments, segs, 0, 0)
}

func matchFrom(pattern []Segment, topic []string, pIdx, tIdx int) bool {
	for {
		switch {
		case pIdx >= len(pattern):
			return tIdx >= len(topic)
		case pattern[pIdx].Kind == SegHash:
			return true
		case tIdx >= len(topic):
			return false
		case pattern[pIdx].Kind == SegPlus:
			pIdx++
			tIdx++
		case pattern[pIdx].Literal == topic[tIdx]:
			pIdx++
			tIdx++
		default:
			return false
		}
	}
}

// DistinctSubscriptions returns the set of distinct raw pattern strings
// across patterns, in first-seen order, suitable for the broker
// subscription list computed at startup (spec.md §4.4: "the broker
// handles wildcard expansion").
func DistinctSubscriptions(patterns []*Pattern) []string {
	seen := make(map[string]bool, len(patterns))
	var out []string
	for _, p := range patterns {
		if seen[p.Raw] {
			continue
		}
		seen[p.Raw] = true
		out = append(out, p.Raw)
	}
	return out
}
