package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a selector's surface syntax:
//
//	$ . IDENT ( . IDENT | [ INT ] | [ STRING-LITERAL ] )*
//
// IDENT is [A-Za-z_][A-Za-z0-9_]*. STRING-LITERAL is single-quoted with no
// escape handling.
func Parse(s string) (*Selector, error) {
	p := &parser{src: s}
	sel, err := p.parseSelector()
	if err != nil {
		return nil, fmt.Errorf("selector: %q: %w", s, err)
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("selector: %q: unexpected trailing input at offset %d", s, p.pos)
	}
	return sel, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.atEnd() || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) parseSelector() (*Selector, error) {
	if err := p.expect('$'); err != nil {
		return nil, err
	}
	if err := p.expect('.'); err != nil {
		return nil, err
	}
	rootName, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	var root Root
	switch rootName {
	case "topic":
		root = RootTopic
	case "payload":
		root = RootPayload
	default:
		return nil, fmt.Errorf("unknown selector root %q (must be topic or payload)", rootName)
	}

	sel := &Selector{Root: root}
	for !p.atEnd() {
		switch p.peek() {
		case '.':
			p.pos++
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			sel.Steps = append(sel.Steps, fieldStep(name))
		case '[':
			p.pos++
			step, err := p.parseBracketStep()
			if err != nil {
				return nil, err
			}
			sel.Steps = append(sel.Steps, step)
		default:
			return sel, nil
		}
	}
	return sel, nil
}

func (p *parser) parseIdent() (string, error) {
	start := p.pos
	if p.atEnd() || !isIdentStart(p.src[p.pos]) {
		return "", fmt.Errorf("expected identifier at offset %d", p.pos)
	}
	p.pos++
	for !p.atEnd() && isIdentCont(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

func (p *parser) parseBracketStep() (Step, error) {
	if p.atEnd() {
		return Step{}, fmt.Errorf("unterminated bracket at offset %d", p.pos)
	}
	if p.peek() == '\'' {
		p.pos++
		start := p.pos
		end := strings.IndexByte(p.src[p.pos:], '\'')
		if end < 0 {
			return Step{}, fmt.Errorf("unterminated string literal at offset %d", start)
		}
		name := p.src[start : start+end]
		p.pos = start + end + 1
		if err := p.expect(']'); err != nil {
			return Step{}, err
		}
		return keyQuotedStep(name), nil
	}

	start := p.pos
	for !p.atEnd() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return Step{}, fmt.Errorf("expected integer index or quoted key at offset %d", start)
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return Step{}, fmt.Errorf("invalid integer index at offset %d: %w", start, err)
	}
	if err := p.expect(']'); err != nil {
		return Step{}, err
	}
	return indexStep(n), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
