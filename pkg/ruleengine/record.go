// Package ruleengine dispatches one inbound (topic, payload) message
// against the configured rule set, producing zero or more Records
// (spec.md §4.6).
package ruleengine

import (
	"github.com/edgeflare/iotbridge/pkg/value"
)

// OrderedTags is an insertion-ordered string-to-string map, used for a
// Record's tag set: line-protocol tags are always strings, and emission
// order should match rule declaration order for reproducible output.
type OrderedTags struct {
	keys []string
	vals map[string]string
}

// NewOrderedTags returns an empty OrderedTags.
func NewOrderedTags() *OrderedTags {
	return &OrderedTags{vals: make(map[string]string)}
}

// Set inserts or updates key, preserving first-insertion order.
func (t *OrderedTags) Set(key, val string) {
	if _, exists := t.vals[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = val
}

// Keys returns tag keys in insertion order.
func (t *OrderedTags) Keys() []string { return t.keys }

// Get returns the value for key and whether it was present.
func (t *OrderedTags) Get(key string) (string, bool) {
	v, ok := t.vals[key]
	return v, ok
}

// Len reports the number of tags.
func (t *OrderedTags) Len() int { return len(t.keys) }

// Record is the rule engine's output: one prospective point bound for a
// time-series destination (and, optionally, a parallel HTTP payload).
// It is the bridge's analogue of a generic change-data-capture event:
// the single domain type that flows from rule evaluation into the
// line-protocol encoder and onward into the sink registry.
type Record struct {
	Bucket      string
	Measurement string
	Tags        *OrderedTags
	Fields      *value.Object
	TypeHints   map[string]value.TypeTag
	TimestampNS int64
}
