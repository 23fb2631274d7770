// Package expr compiles and evaluates the boolean test-expression subset
// used by assert and report checks: location paths and attribute tests for
// existence, equality and inequality against string or numeric literals,
// combined with and, or, and not(...).
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jacoelho/schematron/internal/xpath"
)

// ErrInvalidExpression reports that a test expression does not conform to
// the supported grammar.
var ErrInvalidExpression = errors.New("invalid expression")

func exprErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidExpression}, args...)...)
}

// Compiled is a parsed test expression ready for evaluation.
type Compiled struct {
	root   node
	source string
}

// Source returns the original expression text.
func (c *Compiled) Source() string {
	return c.source
}

type node interface {
	isNode()
}

type orNode struct{ operands []node }
type andNode struct{ operands []node }
type notNode struct{ operand node }

type compareOp int

const (
	opEqual compareOp = iota
	opNotEqual
)

type compareNode struct {
	op  compareOp
	lhs operand
	rhs operand
}

// existsNode is a bare path used as a boolean: true when it selects anything.
type existsNode struct{ path xpath.Expression }

func (orNode) isNode()      {}
func (andNode) isNode()     {}
func (notNode) isNode()     {}
func (compareNode) isNode() {}
func (existsNode) isNode()  {}

type operandKind int

const (
	operandPath operandKind = iota
	operandString
	operandNumber
)

type operand struct {
	kind   operandKind
	path   xpath.Expression
	str    string
	number float64
}

// Compile parses a test expression. Prefixed names are resolved against
// nsContext; an undeclared prefix is a compile error.
func Compile(source string, nsContext map[string]string) (*Compiled, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, exprErrorf("expression cannot be empty")
	}
	p := &parser{tokens: tokens, nsContext: nsContext, source: source}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, exprErrorf("unexpected token %q in %s", p.peek().text, source)
	}
	return &Compiled{root: root, source: source}, nil
}

type parser struct {
	tokens    []token
	pos       int
	nsContext map[string]string
	source    string
}

func (p *parser) parseOr() (node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []node{first}
	for p.matchKeyword("or") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return orNode{operands: operands}, nil
}

func (p *parser) parseAnd() (node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	operands := []node{first}
	for p.matchKeyword("and") {
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return andNode{operands: operands}, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peekKeyword("not") && p.peekAt(1).kind == tokenLParen {
		p.pos += 2
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokenRParen) {
			return nil, exprErrorf("not(...) is missing closing parenthesis: %s", p.source)
		}
		return notNode{operand: inner}, nil
	}

	if p.match(tokenLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokenRParen) {
			return nil, exprErrorf("expression is missing closing parenthesis: %s", p.source)
		}
		return inner, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	var op compareOp
	switch {
	case p.match(tokenEqual):
		op = opEqual
	case p.match(tokenNotEqual):
		op = opNotEqual
	default:
		if lhs.kind != operandPath {
			return nil, exprErrorf("literal %q is not a boolean test: %s", lhs.str, p.source)
		}
		return existsNode{path: lhs.path}, nil
	}

	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareNode{op: op, lhs: lhs, rhs: rhs}, nil
}

func (p *parser) parseOperand() (operand, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenString:
		p.pos++
		return operand{kind: operandString, str: tok.text}, nil
	case tokenBare:
		p.pos++
		if n, err := strconv.ParseFloat(tok.text, 64); err == nil {
			return operand{kind: operandNumber, number: n, str: tok.text}, nil
		}
		path, err := xpath.Compile(tok.text, p.nsContext)
		if err != nil {
			return operand{}, exprErrorf("operand %q: %v", tok.text, err)
		}
		return operand{kind: operandPath, path: path, str: tok.text}, nil
	case tokenEOF:
		return operand{}, exprErrorf("expression ends where an operand was expected: %s", p.source)
	default:
		return operand{}, exprErrorf("unexpected token %q in %s", tok.text, p.source)
	}
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return token{kind: tokenEOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) match(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peekKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokenBare && tok.text == word
}

func (p *parser) matchKeyword(word string) bool {
	if p.peekKeyword(word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) atEnd() bool {
	return p.peek().kind == tokenEOF
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenBare
	tokenString
	tokenLParen
	tokenRParen
	tokenEqual
	tokenNotEqual
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits an expression into tokens. Bracketed predicates are kept
// inside their path token so the '=' of [@a='v'] is not read as a
// comparison operator.
func tokenize(source string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(source) {
		ch := source[i]
		switch {
		case isSpace(ch):
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")"})
			i++
		case ch == '=':
			tokens = append(tokens, token{kind: tokenEqual, text: "="})
			i++
		case ch == '!':
			if i+1 >= len(source) || source[i+1] != '=' {
				return nil, exprErrorf("unexpected '!' in %s", source)
			}
			tokens = append(tokens, token{kind: tokenNotEqual, text: "!="})
			i += 2
		case ch == '\'' || ch == '"':
			end := strings.IndexByte(source[i+1:], ch)
			if end < 0 {
				return nil, exprErrorf("unterminated string literal in %s", source)
			}
			tokens = append(tokens, token{kind: tokenString, text: source[i+1 : i+1+end]})
			i += end + 2
		default:
			text, next, err := readBare(source, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenBare, text: text})
			i = next
		}
	}
	return tokens, nil
}

func readBare(source string, start int) (string, int, error) {
	i := start
	for i < len(source) {
		ch := source[i]
		if ch == '[' {
			depth := 1
			var quote byte
			i++
			for i < len(source) && depth > 0 {
				c := source[i]
				switch {
				case quote != 0:
					if c == quote {
						quote = 0
					}
				case c == '\'' || c == '"':
					quote = c
				case c == '[':
					depth++
				case c == ']':
					depth--
				}
				i++
			}
			if depth > 0 {
				return "", 0, exprErrorf("predicate is missing closing bracket in %s", source)
			}
			continue
		}
		if isSpace(ch) || ch == '(' || ch == ')' || ch == '=' || ch == '!' || ch == '\'' || ch == '"' {
			break
		}
		i++
	}
	if i == start {
		return "", 0, exprErrorf("unexpected character %q in %s", string(source[start]), source)
	}
	return source[start:i], i, nil
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
