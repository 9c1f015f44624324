package expr

import (
	"fmt"
	"strconv"
)

// TokenKind identifies a lexical token kind.
type TokenKind int

const (
	TokNumber TokenKind = iota
	TokSelector
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokCaret
	TokLParen
	TokRParen
	TokEOF
)

// Token is one lexical unit: an operator, parenthesis, number literal, or
// raw selector text (still unparsed — the expr package defers to
// selector.Parse so the grammar is defined in exactly one place).
type Token struct {
	Kind TokenKind
	Text string
	Num  float64
}

// Lex tokenizes an arithmetic expression body (the text after a leading
// "=" has already been stripped and trimmed by the caller).
func Lex(src string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			toks = append(toks, Token{Kind: TokPlus, Text: "+"})
			i++
		case c == '-':
			toks = append(toks, Token{Kind: TokMinus, Text: "-"})
			i++
		case c == '*':
			toks = append(toks, Token{Kind: TokStar, Text: "*"})
			i++
		case c == '/':
			toks = append(toks, Token{Kind: TokSlash, Text: "/"})
			i++
		case c == '%':
			toks = append(toks, Token{Kind: TokPercent, Text: "%"})
			i++
		case c == '^':
			toks = append(toks, Token{Kind: TokCaret, Text: "^"})
			i++
		case c == '(':
			toks = append(toks, Token{Kind: TokLParen, Text: "("})
			i++
		case c == ')':
			toks = append(toks, Token{Kind: TokRParen, Text: ")"})
			i++
		case c == '$':
			text, n, err := lexSelector(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, Token{Kind: TokSelector, Text: text})
			i += n
		case c >= '0' && c <= '9' || c == '.':
			text, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("expr: invalid number %q: %w", text, err)
			}
			toks = append(toks, Token{Kind: TokNumber, Num: f, Text: text})
			i += n
		default:
			return nil, fmt.Errorf("expr: unexpected character %q at offset %d", c, i)
		}
	}
	toks = append(toks, Token{Kind: TokEOF})
	return toks, nil
}

// lexSelector consumes a full "$.root.step[...]..." chain starting at
// offset start, returning its raw text and length.
func lexSelector(src string, start int) (string, int, error) {
	i := start + 1 // past '$'
	for i < len(src) {
		c := src[i]
		switch {
		case c == '.':
			i++
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
		case c == '[':
			end := i + 1
			if end < len(src) && src[end] == '\'' {
				end++
				for end < len(src) && src[end] != '\'' {
					end++
				}
				end++ // closing quote
			} else {
				for end < len(src) && src[end] >= '0' && src[end] <= '9' {
					end++
				}
			}
			if end >= len(src) || src[end] != ']' {
				return "", 0, fmt.Errorf("expr: unterminated bracket in selector at offset %d", i)
			}
			i = end + 1
		default:
			return src[start:i], i - start, nil
		}
	}
	return src[start:i], i - start, nil
}

func lexNumber(src string, start int) (string, int, error) {
	i := start
	for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
		i++
	}
	return src[start:i], i - start, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
