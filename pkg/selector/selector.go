// Package selector implements the small JSONPath-like path language used
// to pull values out of a message's topic segments and payload: $.topic[n]
// and $.payload.field['quoted key'][0]... chains (spec.md §4.2).
package selector

import "fmt"

// Root identifies which half of the message context a Selector is rooted
// at.
type Root int

const (
	RootTopic Root = iota
	RootPayload
)

func (r Root) String() string {
	if r == RootTopic {
		return "topic"
	}
	return "payload"
}

// StepKind identifies which alternative of Step is populated.
type StepKind int

const (
	StepField StepKind = iota
	StepIndex
	StepKeyQuoted
)

// Step is one link in a selector chain: a dotted field name, a bracketed
// integer index, or a bracketed quoted key (semantically identical to
// StepField but permitting characters IDENT cannot, e.g. "pm2.5").
type Step struct {
	Kind StepKind
	Name string
	Idx  int
}

func fieldStep(name string) Step     { return Step{Kind: StepField, Name: name} }
func indexStep(i int) Step           { return Step{Kind: StepIndex, Idx: i} }
func keyQuotedStep(name string) Step { return Step{Kind: StepKeyQuoted, Name: name} }

// Selector is a parsed path expression rooted at $.topic or $.payload.
type Selector struct {
	Root  Root
	Steps []Step
}

// String reconstructs the selector's surface syntax, mainly for error
// messages and config validation diagnostics.
func (s *Selector) String() string {
	out := "$." + s.Root.String()
	for _, step := range s.Steps {
		switch step.Kind {
		case StepField:
			out += "." + step.Name
		case StepIndex:
			out += fmt.Sprintf("[%d]", step.Idx)
		case StepKeyQuoted:
			out += fmt.Sprintf("['%s']", step.Name)
		}
	}
	return out
}
