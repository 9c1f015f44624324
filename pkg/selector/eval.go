package selector

import "github.com/edgeflare/iotbridge/pkg/value"

// Context is the bound message context a selector resolves against: $
// itself is {topic: Array(topic_segments), payload: payload}.
type Context struct {
	Topic   value.Value
	Payload value.Value
}

// Eval resolves sel against ctx. The second return is false when the path
// does not exist (SelectorMiss), never an error — missing paths are a
// normal outcome, not a failure (spec.md §4.2).
func Eval(sel *Selector, ctx Context) (value.Value, bool) {
	cur := ctx.Topic
	if sel.Root == RootPayload {
		cur = ctx.Payload
	}

	for _, step := range sel.Steps {
		var ok bool
		switch step.Kind {
		case StepField, StepKeyQuoted:
			cur, ok = cur.Field(step.Name)
		case StepIndex:
			cur, ok = cur.Index(step.Idx)
		}
		if !ok {
			return value.Null(), false
		}
	}
	return cur, true
}
