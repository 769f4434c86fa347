package cond

import (
	"fmt"
	"sort"
	"strings"
)

// RetName is the distinguished variable bound to a function's return value
// in postconditions.
const RetName = "ret"

// VariableTable maps variable names to types: function arguments, locals,
// compiler temporaries, plus RetName bound to the return type.
type VariableTable struct {
	vars    map[string]Type
	retType Type
}

func NewVariableTable(retType Type) *VariableTable {
	return &VariableTable{
		vars:    make(map[string]Type),
		retType: retType,
	}
}

func (t *VariableTable) Declare(name string, typ Type) {
	t.vars[name] = typ
}

func (t *VariableTable) Lookup(name string) (Type, bool) {
	if name == RetName {
		// Functions without a return value bind no ret at all.
		if t.retType == TypeUnknown {
			return TypeUnknown, false
		}
		return t.retType, true
	}
	typ, ok := t.vars[name]
	return typ, ok
}

func (t *VariableTable) ReturnType() Type { return t.retType }

// Names returns the declared names sorted, RetName excluded.
func (t *VariableTable) Names() []string {
	names := make([]string, 0, len(t.vars))
	for name := range t.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type TypeErrorKind int

const (
	ErrUnknownVariable TypeErrorKind = iota
	ErrTypeMismatch
	ErrNotBoolean
)

// TypeError reports an unresolved name or an ill-typed sub-expression.
type TypeError struct {
	Kind     TypeErrorKind
	Name     string   // ErrUnknownVariable
	Scope    []string // names that were in scope, ErrUnknownVariable
	Expr     Expr     // offending sub-expression
	Expected Type
	Actual   Type
}

func (e *TypeError) Error() string {
	switch e.Kind {
	case ErrUnknownVariable:
		if len(e.Scope) > 0 {
			return fmt.Sprintf("unknown variable %q, in scope: %s",
				e.Name, strings.Join(e.Scope, ", "))
		}
		return fmt.Sprintf("unknown variable %q", e.Name)
	case ErrNotBoolean:
		return fmt.Sprintf("condition %q is %s, not bool", e.Expr, e.Actual)
	}
	return fmt.Sprintf("in %q: expected %s, got %s", e.Expr, e.Expected, e.Actual)
}

// Resolve replaces every unknown-typed variable reference with one carrying
// the type recorded in the table. It is a pure transform; the input tree is
// not modified. A name missing from the table is a TypeError.
func Resolve(expr Expr, table *VariableTable) (Expr, error) {
	switch e := expr.(type) {
	case *IntLit, *BoolLit:
		return expr, nil
	case *Var:
		typ, ok := table.Lookup(e.Name)
		if !ok {
			return nil, &TypeError{Kind: ErrUnknownVariable, Name: e.Name, Scope: table.Names()}
		}
		return &Var{Name: e.Name, VarType: typ}, nil
	case *Binary:
		left, err := Resolve(e.Left, table)
		if err != nil {
			return nil, err
		}
		right, err := Resolve(e.Right, table)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: e.Op, Left: left, Right: right}, nil
	case *Unary:
		operand, err := Resolve(e.Operand, table)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: e.Op, Operand: operand}, nil
	}
	return nil, fmt.Errorf("resolve: unexpected node %T", expr)
}

// TypeCheck validates a resolved tree bottom-up and returns its type.
func TypeCheck(expr Expr) (Type, error) {
	switch e := expr.(type) {
	case *IntLit:
		return TypeInt, nil
	case *BoolLit:
		return TypeBool, nil
	case *Var:
		if e.VarType == TypeUnknown {
			return TypeUnknown, &TypeError{Kind: ErrUnknownVariable, Name: e.Name}
		}
		return e.VarType, nil
	case *Binary:
		left, err := TypeCheck(e.Left)
		if err != nil {
			return TypeUnknown, err
		}
		right, err := TypeCheck(e.Right)
		if err != nil {
			return TypeUnknown, err
		}
		switch {
		case e.Op.IsArith():
			if left != TypeInt {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Left, Expected: TypeInt, Actual: left}
			}
			if right != TypeInt {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Right, Expected: TypeInt, Actual: right}
			}
			return TypeInt, nil
		case e.Op.IsOrdering():
			if left != TypeInt {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Left, Expected: TypeInt, Actual: left}
			}
			if right != TypeInt {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Right, Expected: TypeInt, Actual: right}
			}
			return TypeBool, nil
		case e.Op.IsLogical():
			if left != TypeBool {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Left, Expected: TypeBool, Actual: left}
			}
			if right != TypeBool {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Right, Expected: TypeBool, Actual: right}
			}
			return TypeBool, nil
		default: // == and !=: both sides the same type
			if left != right {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Right, Expected: left, Actual: right}
			}
			return TypeBool, nil
		}
	case *Unary:
		operand, err := TypeCheck(e.Operand)
		if err != nil {
			return TypeUnknown, err
		}
		if e.Op == OpNot {
			if operand != TypeBool {
				return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Operand, Expected: TypeBool, Actual: operand}
			}
			return TypeBool, nil
		}
		if operand != TypeInt {
			return TypeUnknown, &TypeError{Kind: ErrTypeMismatch, Expr: e.Operand, Expected: TypeInt, Actual: operand}
		}
		return TypeInt, nil
	}
	return TypeUnknown, fmt.Errorf("typecheck: unexpected node %T", expr)
}

// CheckCondition typechecks a pre/postcondition, which must be boolean at
// the root.
func CheckCondition(expr Expr) error {
	typ, err := TypeCheck(expr)
	if err != nil {
		return err
	}
	if typ != TypeBool {
		return &TypeError{Kind: ErrNotBoolean, Expr: expr, Expected: TypeBool, Actual: typ}
	}
	return nil
}
