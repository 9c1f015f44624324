package config

import (
	"fmt"
	"strings"

	"github.com/edgeflare/iotbridge/pkg/crongate"
	"github.com/edgeflare/iotbridge/pkg/expr"
	"github.com/edgeflare/iotbridge/pkg/selector"
	"github.com/edgeflare/iotbridge/pkg/topicmatch"
	"github.com/edgeflare/iotbridge/pkg/value"
	"gopkg.in/yaml.v3"
)

// FieldSpecKind identifies which alternative of FieldSpec is populated.
type FieldSpecKind int

const (
	FieldPlain FieldSpecKind = iota
	FieldTyped
	FieldExpr
)

// FieldSpec is one rule field's resolution recipe (spec.md §3: Plain,
// Typed, Expr).
type FieldSpec struct {
	Kind     FieldSpecKind
	Selector *selector.Selector // Plain, Typed
	Type     value.TypeTag      // Typed
	Expr     *expr.Node         // Expr
}

// KV is an ordered key/value pair, used where config order must be
// preserved (fields, tags, httpcontent all emit in declaration order).
type KV[V any] struct {
	Key string
	Val V
}

// Rule is one immutable, parsed `points` entry.
type Rule struct {
	Measurement string
	Topic       *topicmatch.Pattern
	Bucket      string // empty means "use the InfluxDB default bucket"
	Schedule    *crongate.Schedule
	Fields      []KV[FieldSpec]
	Tags        []KV[*selector.Selector]
	HTTPContent []KV[*selector.Selector]
}

// decodeRules parses the `points` sequence node into Rules, preserving
// the declaration order of both the rule list and each rule's fields
// and tags. yaml.v3's Node API is used instead of unmarshalling into
// map[string]string because the latter does not preserve key order,
// and rule field/tag order is part of this system's observable output
// (spec.md §5: "within a single rule's output, line-protocol lines
// retain arrival order").
func decodeRules(node *yaml.Node) ([]*Rule, error) {
	if node == nil {
		return nil, fmt.Errorf("config: missing required \"points\" section")
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("config: \"points\" must be a list")
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("config: \"points\" must be non-empty")
	}

	rules := make([]*Rule, 0, len(node.Content))
	for i, item := range node.Content {
		rule, err := decodeRule(item)
		if err != nil {
			return nil, fmt.Errorf("config: points[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodeRule(node *yaml.Node) (*Rule, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("rule must be a mapping")
	}

	r := &Rule{}
	var fieldsNode, tagsNode, httpcontentNode *yaml.Node

	for k, v := range mappingPairs(node) {
		switch k {
		case "measurement":
			r.Measurement = v.Value
		case "bucket":
			r.Bucket = v.Value
		case "topic":
			pat, err := topicmatch.Parse(v.Value)
			if err != nil {
				return nil, err
			}
			r.Topic = pat
		case "schedule":
			sch, err := crongate.ParseSchedule(v.Value)
			if err != nil {
				return nil, err
			}
			r.Schedule = sch
		case "fields":
			fieldsNode = v
		case "tags":
			tagsNode = v
		case "httpcontent":
			httpcontentNode = v
		default:
			return nil, fmt.Errorf("unknown rule key %q", k)
		}
	}

	if r.Measurement == "" {
		return nil, fmt.Errorf("rule is missing required \"measurement\"")
	}
	if r.Topic == nil {
		return nil, fmt.Errorf("rule is missing required \"topic\"")
	}
	if fieldsNode == nil {
		return nil, fmt.Errorf("rule %q has no \"fields\" (at least one is required)", r.Measurement)
	}

	fields, err := decodeFields(fieldsNode)
	if err != nil {
		return nil, fmt.Errorf("rule %q: fields: %w", r.Measurement, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("rule %q: fields must be non-empty", r.Measurement)
	}
	r.Fields = fields

	if tagsNode != nil {
		tags, err := decodeSelectorMap(tagsNode)
		if err != nil {
			return nil, fmt.Errorf("rule %q: tags: %w", r.Measurement, err)
		}
		r.Tags = tags
	}
	if httpcontentNode != nil {
		hc, err := decodeSelectorMap(httpcontentNode)
		if err != nil {
			return nil, fmt.Errorf("rule %q: httpcontent: %w", r.Measurement, err)
		}
		r.HTTPContent = hc
	}

	return r, nil
}

func decodeFields(node *yaml.Node) ([]KV[FieldSpec], error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("must be a mapping")
	}
	out := make([]KV[FieldSpec], 0, len(node.Content)/2)
	for k, v := range mappingPairs(node) {
		spec, err := decodeFieldSpec(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out = append(out, KV[FieldSpec]{Key: k, Val: spec})
	}
	return out, nil
}

func decodeFieldSpec(node *yaml.Node) (FieldSpec, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return parseFieldScalar(node.Value)
	case yaml.MappingNode:
		var selText, typeText string
		for k, v := range mappingPairs(node) {
			switch k {
			case "value":
				selText = v.Value
			case "type":
				typeText = v.Value
			default:
				return FieldSpec{}, fmt.Errorf("unknown key %q in typed field", k)
			}
		}
		if selText == "" {
			return FieldSpec{}, fmt.Errorf("typed field is missing \"value\"")
		}
		tag, err := value.ParseTypeTag(typeText)
		if err != nil {
			return FieldSpec{}, err
		}
		sel, err := selector.Parse(selText)
		if err != nil {
			return FieldSpec{}, err
		}
		return FieldSpec{Kind: FieldTyped, Selector: sel, Type: tag}, nil
	default:
		return FieldSpec{}, fmt.Errorf("field must be a selector string or a {value, type} mapping")
	}
}

// parseFieldScalar classifies a bare field value: an expression if it
// starts with "=" after trimming, otherwise a plain selector.
func parseFieldScalar(s string) (FieldSpec, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "=") {
		node, err := expr.Parse(strings.TrimSpace(trimmed[1:]))
		if err != nil {
			return FieldSpec{}, err
		}
		return FieldSpec{Kind: FieldExpr, Expr: node}, nil
	}
	sel, err := selector.Parse(trimmed)
	if err != nil {
		return FieldSpec{}, err
	}
	return FieldSpec{Kind: FieldPlain, Selector: sel}, nil
}

func decodeSelectorMap(node *yaml.Node) ([]KV[*selector.Selector], error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("must be a mapping")
	}
	out := make([]KV[*selector.Selector], 0, len(node.Content)/2)
	for k, v := range mappingPairs(node) {
		sel, err := selector.Parse(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		out = append(out, KV[*selector.Selector]{Key: k, Val: sel})
	}
	return out, nil
}

// mappingPairs iterates a yaml.v3 MappingNode's key/value pairs in
// document order.
func mappingPairs(node *yaml.Node) func(yield func(string, *yaml.Node) bool) {
	return func(yield func(string, *yaml.Node) bool) {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if !yield(node.Content[i].Value, node.Content[i+1]) {
				return
			}
		}
	}
}
