package cond

import (
	"fmt"
	"strconv"
)

// ParseError reports malformed condition text, with the byte offset of the
// offending token and what the parser expected there.
type ParseError struct {
	Source   string
	Offset   int
	Expected string
	Got      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: expected %s, got %q in %q",
		e.Offset, e.Expected, e.Got, e.Source)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokIdent
	tokTrue
	tokFalse
	tokLParen
	tokRParen
	tokOp // binary or unary operator, text in token.text
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

type lexer struct {
	src string
	pos int
}

func (lx *lexer) errorf(offset int, got, expected string) *ParseError {
	return &ParseError{Source: lx.src, Offset: offset, Expected: expected, Got: got}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func (lx *lexer) next() (token, *ParseError) {
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		lx.pos++
	}
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, offset: start}, nil
	}
	c := lx.src[lx.pos]
	switch {
	case isDigit(c):
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokInt, text: lx.src[start:lx.pos], offset: start}, nil
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		text := lx.src[start:lx.pos]
		switch text {
		case "true":
			return token{kind: tokTrue, text: text, offset: start}, nil
		case "false":
			return token{kind: tokFalse, text: text, offset: start}, nil
		}
		return token{kind: tokIdent, text: text, offset: start}, nil
	case c == '(':
		lx.pos++
		return token{kind: tokLParen, text: "(", offset: start}, nil
	case c == ')':
		lx.pos++
		return token{kind: tokRParen, text: ")", offset: start}, nil
	}

	// Multi-character operators, longest first.
	for _, op := range [...]string{"==>", "==", "!=", "<=", ">=", "&&", "||"} {
		if len(lx.src)-lx.pos >= len(op) && lx.src[lx.pos:lx.pos+len(op)] == op {
			lx.pos += len(op)
			return token{kind: tokOp, text: op, offset: start}, nil
		}
	}
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '!':
		lx.pos++
		return token{kind: tokOp, text: string(c), offset: start}, nil
	}
	return token{}, lx.errorf(start, string(c), "a token")
}

type parser struct {
	lx  lexer
	tok token
}

// Parse turns a condition source string into an untyped expression tree.
// All variable references carry TypeUnknown; Resolve binds them.
func Parse(source string) (Expr, error) {
	p := &parser{lx: lexer{src: source}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.lx.errorf(p.tok.offset, p.tok.text, "end of condition")
	}
	return expr, nil
}

func (p *parser) advance() *ParseError {
	tok, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// accept consumes the current token if it is the given operator.
func (p *parser) accept(op string) (bool, *ParseError) {
	if p.tok.kind == tokOp && p.tok.text == op {
		return true, p.advance()
	}
	return false, nil
}

// parseImplies handles ==>, which binds loosest and associates right.
func (p *parser) parseImplies() (Expr, *ParseError) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	ok, err := p.accept("==>")
	if err != nil {
		return nil, err
	}
	if !ok {
		return left, nil
	}
	right, err := p.parseImplies()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: OpImplies, Left: left, Right: right}, nil
}

func (p *parser) parseOr() (Expr, *ParseError) {
	return p.parseBinaryChain(p.parseAnd, map[string]BinaryOp{"||": OpOr})
}

func (p *parser) parseAnd() (Expr, *ParseError) {
	return p.parseBinaryChain(p.parseEquality, map[string]BinaryOp{"&&": OpAnd})
}

func (p *parser) parseEquality() (Expr, *ParseError) {
	return p.parseBinaryChain(p.parseRelational, map[string]BinaryOp{
		"==": OpEq, "!=": OpNe,
	})
}

func (p *parser) parseRelational() (Expr, *ParseError) {
	return p.parseBinaryChain(p.parseAdditive, map[string]BinaryOp{
		"<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
	})
}

func (p *parser) parseAdditive() (Expr, *ParseError) {
	return p.parseBinaryChain(p.parseMultiplicative, map[string]BinaryOp{
		"+": OpAdd, "-": OpSub,
	})
}

func (p *parser) parseMultiplicative() (Expr, *ParseError) {
	return p.parseBinaryChain(p.parseUnary, map[string]BinaryOp{
		"*": OpMul, "/": OpDiv, "%": OpMod,
	})
}

// parseBinaryChain parses a left-associative run of operators at one
// precedence level.
func (p *parser) parseBinaryChain(sub func() (Expr, *ParseError), ops map[string]BinaryOp) (Expr, *ParseError) {
	left, err := sub()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp {
		op, ok := ops[p.tok.text]
		if !ok {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := sub()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, *ParseError) {
	if p.tok.kind == tokOp && (p.tok.text == "!" || p.tok.text == "-") {
		op := OpNot
		if p.tok.text == "-" {
			op = OpNeg
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, *ParseError) {
	tok := p.tok
	switch tok.kind {
	case tokInt:
		v, convErr := strconv.ParseInt(tok.text, 10, 64)
		if convErr != nil {
			return nil, p.lx.errorf(tok.offset, tok.text, "an integer literal")
		}
		return &IntLit{Value: v}, p.advance()
	case tokTrue:
		return &BoolLit{Value: true}, p.advance()
	case tokFalse:
		return &BoolLit{Value: false}, p.advance()
	case tokIdent:
		return &Var{Name: tok.text, VarType: TypeUnknown}, p.advance()
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseImplies()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.lx.errorf(p.tok.offset, p.tok.text, "')'")
		}
		return inner, p.advance()
	}
	return nil, p.lx.errorf(tok.offset, tok.text, "an operand")
}
