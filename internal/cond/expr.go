package cond

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the type of a condition expression. TypeUnknown only appears on
// variables between parsing and resolution; TypeCheck rejects it.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	}
	return "unknown"
}

type BinaryOp int

// OpDiv and OpMod are Euclidean, as in SMT-LIB: the remainder is always
// non-negative (-7 / 2 == -4, -7 % 2 == 1), and both are total at a zero
// divisor. This is not Go's truncated division.
const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpImplies
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpImplies:
		return "==>"
	}
	return "?"
}

// IsArith reports whether the operator takes ints to an int.
func (op BinaryOp) IsArith() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsOrdering reports whether the operator is one of < <= > >=.
func (op BinaryOp) IsOrdering() bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsLogical reports whether the operator takes bools to a bool.
func (op BinaryOp) IsLogical() bool {
	switch op {
	case OpAnd, OpOr, OpImplies:
		return true
	}
	return false
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "!"
	}
	return "-"
}

// Expr is a condition expression tree node.
type Expr interface {
	// Type reports the node's type. It is only meaningful on a resolved
	// tree; before resolution variables report TypeUnknown.
	Type() Type
	String() string
	exprNode()
}

type IntLit struct {
	Value int64
}

type BoolLit struct {
	Value bool
}

// Var is a free variable reference. VarType is TypeUnknown as produced by
// the parser and is populated by Resolve.
type Var struct {
	Name    string
	VarType Type
}

type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (*IntLit) exprNode()  {}
func (*BoolLit) exprNode() {}
func (*Var) exprNode()     {}
func (*Binary) exprNode()  {}
func (*Unary) exprNode()   {}

func (e *IntLit) Type() Type  { return TypeInt }
func (e *BoolLit) Type() Type { return TypeBool }
func (e *Var) Type() Type     { return e.VarType }

func (e *Binary) Type() Type {
	if e.Op.IsArith() {
		return TypeInt
	}
	return TypeBool
}

func (e *Unary) Type() Type {
	if e.Op == OpNot {
		return TypeBool
	}
	return TypeInt
}

// Operator precedence, loosest first. Used by both the parser and the
// printer so that String followed by Parse round-trips.
const (
	precImplies = iota + 1
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precAtom
)

func (op BinaryOp) precedence() int {
	switch op {
	case OpImplies:
		return precImplies
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpEq, OpNe:
		return precEquality
	case OpLt, OpLe, OpGt, OpGe:
		return precRelational
	case OpAdd, OpSub:
		return precAdditive
	}
	return precMultiplicative
}

func precedenceOf(e Expr) int {
	switch e := e.(type) {
	case *Binary:
		return e.Op.precedence()
	case *Unary:
		return precUnary
	}
	return precAtom
}

func (e *IntLit) String() string { return strconv.FormatInt(e.Value, 10) }

func (e *BoolLit) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

func (e *Var) String() string { return e.Name }

func (e *Binary) String() string {
	p := e.Op.precedence()
	// Implication is right-associative, everything else left-associative.
	lp, rp := p, p+1
	if e.Op == OpImplies {
		lp, rp = p+1, p
	}
	var b strings.Builder
	b.WriteString(paren(e.Left, lp))
	b.WriteString(" ")
	b.WriteString(e.Op.String())
	b.WriteString(" ")
	b.WriteString(paren(e.Right, rp))
	return b.String()
}

func (e *Unary) String() string {
	return fmt.Sprintf("%s%s", e.Op, paren(e.Operand, precUnary))
}

func paren(e Expr, min int) string {
	if precedenceOf(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Constructor helpers for the WP generator.

func And(l, r Expr) Expr     { return &Binary{Op: OpAnd, Left: l, Right: r} }
func Or(l, r Expr) Expr      { return &Binary{Op: OpOr, Left: l, Right: r} }
func Implies(l, r Expr) Expr { return &Binary{Op: OpImplies, Left: l, Right: r} }
func Not(e Expr) Expr        { return &Unary{Op: OpNot, Operand: e} }
