package smt

import (
	"fmt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"gover/internal/cond"
)

// EncodingError is a condition construct with no solver equivalent. The
// driver reports it as an inconclusive check, never as success.
type EncodingError struct {
	Expr   cond.Expr
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %q: %s", e.Expr, e.Reason)
}

type constEntry struct {
	term yices2.TermT
	typ  cond.Type
}

// encoder translates a condition tree into yices terms. Solver constants
// are cached by name so every occurrence of a variable maps to the same
// term.
type encoder struct {
	consts map[string]constEntry
}

func newEncoder() *encoder {
	return &encoder{consts: make(map[string]constEntry)}
}

func (e *encoder) constant(expr *cond.Var) (yices2.TermT, error) {
	if entry, ok := e.consts[expr.Name]; ok {
		if entry.typ != expr.VarType {
			return yices2.NullTerm, &EncodingError{Expr: expr, Reason: "variable re-used at a different type"}
		}
		return entry.term, nil
	}
	var tau yices2.TypeT
	switch expr.VarType {
	case cond.TypeInt:
		tau = yices2.IntType()
	case cond.TypeBool:
		tau = yices2.BoolType()
	default:
		return yices2.NullTerm, &EncodingError{Expr: expr, Reason: "unresolved variable type"}
	}
	term := yices2.NewUninterpretedTerm(tau)
	yices2.SetTermName(term, expr.Name)
	e.consts[expr.Name] = constEntry{term: term, typ: expr.VarType}
	return term, nil
}

func (e *encoder) encode(expr cond.Expr) (yices2.TermT, error) {
	switch ex := expr.(type) {
	case *cond.IntLit:
		return yices2.Int64(ex.Value), nil
	case *cond.BoolLit:
		if ex.Value {
			return yices2.True(), nil
		}
		return yices2.False(), nil
	case *cond.Var:
		return e.constant(ex)
	case *cond.Binary:
		left, err := e.encode(ex.Left)
		if err != nil {
			return yices2.NullTerm, err
		}
		right, err := e.encode(ex.Right)
		if err != nil {
			return yices2.NullTerm, err
		}
		switch ex.Op {
		case cond.OpAdd:
			return yices2.Add(left, right), nil
		case cond.OpSub:
			return yices2.Sub(left, right), nil
		case cond.OpMul:
			return yices2.Mul(left, right), nil
		case cond.OpDiv:
			return yices2.Idiv(left, right), nil
		case cond.OpMod:
			return yices2.Imod(left, right), nil
		case cond.OpEq:
			return yices2.Eq(left, right), nil
		case cond.OpNe:
			return yices2.Neq(left, right), nil
		case cond.OpLt:
			return yices2.ArithLtAtom(left, right), nil
		case cond.OpLe:
			return yices2.ArithLeqAtom(left, right), nil
		case cond.OpGt:
			return yices2.ArithGtAtom(left, right), nil
		case cond.OpGe:
			return yices2.ArithGeqAtom(left, right), nil
		case cond.OpAnd:
			return yices2.And2(left, right), nil
		case cond.OpOr:
			return yices2.Or2(left, right), nil
		case cond.OpImplies:
			return yices2.Implies(left, right), nil
		}
		return yices2.NullTerm, &EncodingError{Expr: ex, Reason: "operator has no solver equivalent"}
	case *cond.Unary:
		operand, err := e.encode(ex.Operand)
		if err != nil {
			return yices2.NullTerm, err
		}
		if ex.Op == cond.OpNot {
			return yices2.Not(operand), nil
		}
		return yices2.Neg(operand), nil
	}
	return yices2.NullTerm, &EncodingError{Expr: expr, Reason: "unexpected node"}
}
