package expr

import (
	"fmt"

	"github.com/edgeflare/iotbridge/pkg/selector"
)

// Parse builds an expression AST from an expression body (the leading "="
// already stripped). Grammar, precedence low to high:
//
//	+ -   (left-assoc)
//	* / % (left-assoc)
//	^     (right-assoc)
//	unary -
//	atom = number | selector | ( expr )
func Parse(src string) (*Node, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != TokEOF {
		return nil, fmt.Errorf("expr: unexpected token %q", p.cur().Text)
	}
	return node, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) cur() Token { return p.toks[p.pos] }

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseAdditive() (*Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case TokPlus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &Node{Kind: NodeBinary, Op: OpAdd, L: left, R: right}
		case TokMinus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &Node{Kind: NodeBinary, Op: OpSub, L: left, R: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseMultiplicative() (*Node, error) {
	left, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOp
		switch p.cur().Kind {
		case TokStar:
			op = OpMul
		case TokSlash:
			op = OpDiv
		case TokPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeBinary, Op: op, L: left, R: right}
	}
}

// parsePow is right-associative: 2^3^2 == 2^(3^2).
func (p *parser) parsePow() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == TokCaret {
		p.advance()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeBinary, Op: OpPow, L: left, R: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (*Node, error) {
	if p.cur().Kind == TokMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeUnaryMinus, L: operand}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (*Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case TokNumber:
		p.advance()
		return &Node{Kind: NodeNumber, Num: tok.Num}, nil
	case TokSelector:
		p.advance()
		sel, err := selector.Parse(tok.Text)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeSelector, Sel: sel}, nil
	case TokLParen:
		p.advance()
		inner, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != TokRParen {
			return nil, fmt.Errorf("expr: expected ')'")
		}
		p.advance()
		return inner, nil
	default:
		return nil, fmt.Errorf("expr: unexpected token %q", tok.Text)
	}
}
