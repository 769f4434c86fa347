package cond

// Subst returns expr with every free occurrence of the named variable
// replaced by repl. The input tree is shared, never modified; nodes on the
// path to a replacement are rebuilt.
func Subst(expr Expr, name string, repl Expr) Expr {
	switch e := expr.(type) {
	case *IntLit, *BoolLit:
		return expr
	case *Var:
		if e.Name == name {
			return repl
		}
		return expr
	case *Binary:
		left := Subst(e.Left, name, repl)
		right := Subst(e.Right, name, repl)
		if left == e.Left && right == e.Right {
			return expr
		}
		return &Binary{Op: e.Op, Left: left, Right: right}
	case *Unary:
		operand := Subst(e.Operand, name, repl)
		if operand == e.Operand {
			return expr
		}
		return &Unary{Op: e.Op, Operand: operand}
	}
	return expr
}

// Equal reports structural equality of two expression trees, variable
// types included.
func Equal(a, b Expr) bool {
	switch ea := a.(type) {
	case *IntLit:
		eb, ok := b.(*IntLit)
		return ok && ea.Value == eb.Value
	case *BoolLit:
		eb, ok := b.(*BoolLit)
		return ok && ea.Value == eb.Value
	case *Var:
		eb, ok := b.(*Var)
		return ok && ea.Name == eb.Name && ea.VarType == eb.VarType
	case *Binary:
		eb, ok := b.(*Binary)
		return ok && ea.Op == eb.Op && Equal(ea.Left, eb.Left) && Equal(ea.Right, eb.Right)
	case *Unary:
		eb, ok := b.(*Unary)
		return ok && ea.Op == eb.Op && Equal(ea.Operand, eb.Operand)
	}
	return false
}

// FreeVars appends the names of variables occurring in expr to the given
// set, keyed by name with the variable's resolved type.
func FreeVars(expr Expr, vars map[string]Type) {
	switch e := expr.(type) {
	case *Var:
		vars[e.Name] = e.VarType
	case *Binary:
		FreeVars(e.Left, vars)
		FreeVars(e.Right, vars)
	case *Unary:
		FreeVars(e.Operand, vars)
	}
}
