package frontend

import (
	"go/ast"
	"go/token"
	"strconv"

	"gover/internal/cfg"
	"gover/internal/cond"
)

// lowerer turns one function body into basic blocks. It keeps a single
// open block; statements append to it until a terminator closes it.
type lowerer struct {
	cmap      ast.CommentMap
	graph     *cfg.Graph
	table     *cond.VariableTable
	contracts cfg.Contracts
	cur       cfg.BlockID
}

func unsupported(detail string) error {
	return &cfg.UnsupportedError{Kind: cfg.UnsupportedConstruct, Detail: detail}
}

func (lw *lowerer) lower(fd *ast.FuncDecl) error {
	if fd.Body == nil {
		return unsupported("function without a body")
	}
	lw.cur = lw.graph.NewBlock()
	lw.graph.Entry = lw.cur
	if err := lw.stmts(fd.Body.List); err != nil {
		return err
	}
	// Fall-off-the-end: a return with no value.
	if lw.cur != cfg.NoBlock {
		lw.graph.Block(lw.cur).Term = &cfg.Return{}
		lw.cur = cfg.NoBlock
	}
	return nil
}

func (lw *lowerer) stmts(list []ast.Stmt) error {
	for _, stmt := range list {
		if lw.cur == cfg.NoBlock {
			// Unreachable code after a return contributes nothing to
			// any path.
			return nil
		}
		if err := lw.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (lw *lowerer) stmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return lw.assign(s)
	case *ast.IncDecStmt:
		return lw.incDec(s)
	case *ast.DeclStmt:
		return lw.decl(s)
	case *ast.ReturnStmt:
		return lw.ret(s)
	case *ast.IfStmt:
		return lw.ifStmt(s)
	case *ast.ForStmt:
		return lw.forStmt(s)
	case *ast.BlockStmt:
		return lw.stmts(s.List)
	case *ast.ExprStmt:
		call, ok := s.X.(*ast.CallExpr)
		if !ok {
			return unsupported("expression statement")
		}
		return lw.call("", call)
	case *ast.EmptyStmt:
		return nil
	}
	return unsupported("statement")
}

func (lw *lowerer) assign(s *ast.AssignStmt) error {
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return unsupported("multiple assignment")
	}
	ident, ok := s.Lhs[0].(*ast.Ident)
	if !ok {
		return unsupported("assignment to a non-variable")
	}

	// The variable table is flat: a := redeclaring a known name would
	// shadow in Go but alias here, so it is not lowered.
	if s.Tok == token.DEFINE {
		if _, exists := lw.table.Lookup(ident.Name); exists {
			return unsupported("redeclaration of " + ident.Name)
		}
	}

	if call, ok := s.Rhs[0].(*ast.CallExpr); ok {
		if s.Tok == token.DEFINE {
			ct, err := lw.calleeContract(call)
			if err != nil {
				return err
			}
			lw.table.Declare(ident.Name, ct.RetType)
		}
		return lw.call(ident.Name, call)
	}

	rhs, err := lw.expr(s.Rhs[0])
	if err != nil {
		return err
	}
	if s.Tok == token.DEFINE {
		typ, err := cond.TypeCheck(rhs)
		if err != nil {
			return err
		}
		lw.table.Declare(ident.Name, typ)
	} else if _, ok := lw.table.Lookup(ident.Name); !ok {
		return &cond.TypeError{Kind: cond.ErrUnknownVariable, Name: ident.Name}
	}
	lw.emit(&cfg.Assign{Lhs: ident.Name, Rhs: rhs})
	return nil
}

func (lw *lowerer) incDec(s *ast.IncDecStmt) error {
	ident, ok := s.X.(*ast.Ident)
	if !ok {
		return unsupported("increment of a non-variable")
	}
	op := cond.OpAdd
	if s.Tok == token.DEC {
		op = cond.OpSub
	}
	v, err := lw.expr(s.X)
	if err != nil {
		return err
	}
	lw.emit(&cfg.Assign{
		Lhs: ident.Name,
		Rhs: &cond.Binary{Op: op, Left: v, Right: &cond.IntLit{Value: 1}},
	})
	return nil
}

func (lw *lowerer) decl(s *ast.DeclStmt) error {
	gd, ok := s.Decl.(*ast.GenDecl)
	if !ok || gd.Tok != token.VAR {
		return unsupported("declaration")
	}
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			return unsupported("declaration")
		}
		if vs.Type == nil {
			return unsupported("untyped var declaration")
		}
		typ, err := typeOf(vs.Type)
		if err != nil {
			return err
		}
		if len(vs.Values) > 0 && len(vs.Values) != len(vs.Names) {
			return unsupported("unbalanced var declaration")
		}
		for i, name := range vs.Names {
			if _, exists := lw.table.Lookup(name.Name); exists {
				return unsupported("redeclaration of " + name.Name)
			}
			lw.table.Declare(name.Name, typ)
			if len(vs.Values) > 0 {
				rhs, err := lw.expr(vs.Values[i])
				if err != nil {
					return err
				}
				lw.emit(&cfg.Assign{Lhs: name.Name, Rhs: rhs})
			}
		}
	}
	return nil
}

func (lw *lowerer) ret(s *ast.ReturnStmt) error {
	term := &cfg.Return{}
	switch len(s.Results) {
	case 0:
	case 1:
		value, err := lw.expr(s.Results[0])
		if err != nil {
			return err
		}
		term.Value = value
	default:
		return unsupported("multiple return values")
	}
	lw.graph.Block(lw.cur).Term = term
	lw.cur = cfg.NoBlock
	return nil
}

func (lw *lowerer) ifStmt(s *ast.IfStmt) error {
	if s.Init != nil {
		return unsupported("if with init statement")
	}
	guard, err := lw.expr(s.Cond)
	if err != nil {
		return err
	}

	thenB := lw.graph.NewBlock()
	elseB := lw.graph.NewBlock()
	lw.graph.Block(lw.cur).Term = &cfg.Branch{Cond: guard, Then: thenB, Else: elseB}

	lw.cur = thenB
	if err := lw.stmts(s.Body.List); err != nil {
		return err
	}
	thenEnd := lw.cur

	lw.cur = elseB
	if s.Else != nil {
		if err := lw.stmt(s.Else); err != nil {
			return err
		}
	}
	elseEnd := lw.cur

	if thenEnd == cfg.NoBlock && elseEnd == cfg.NoBlock {
		lw.cur = cfg.NoBlock
		return nil
	}
	join := lw.graph.NewBlock()
	if thenEnd != cfg.NoBlock {
		lw.graph.Block(thenEnd).Term = &cfg.Jump{To: join}
	}
	if elseEnd != cfg.NoBlock {
		lw.graph.Block(elseEnd).Term = &cfg.Jump{To: join}
	}
	lw.cur = join
	return nil
}

func (lw *lowerer) forStmt(s *ast.ForStmt) error {
	if s.Init != nil {
		if err := lw.stmt(s.Init); err != nil {
			return err
		}
	}

	header := lw.graph.NewBlock()
	lw.graph.Block(lw.cur).Term = &cfg.Jump{To: header}

	if inv, ok := lw.invariantFor(s); ok {
		parsed, err := cond.Parse(inv)
		if err != nil {
			return err
		}
		resolved, err := cond.Resolve(parsed, lw.table)
		if err != nil {
			return err
		}
		lw.graph.Block(header).Invariant = resolved
	}

	body := lw.graph.NewBlock()
	if s.Cond != nil {
		guard, err := lw.expr(s.Cond)
		if err != nil {
			return err
		}
		exit := lw.graph.NewBlock()
		lw.graph.Block(header).Term = &cfg.Branch{Cond: guard, Then: body, Else: exit}
		lw.cur = body
		if err := lw.loopBody(s, header); err != nil {
			return err
		}
		lw.cur = exit
		return nil
	}

	// for {}: no exit edge.
	lw.graph.Block(header).Term = &cfg.Jump{To: body}
	lw.cur = body
	if err := lw.loopBody(s, header); err != nil {
		return err
	}
	lw.cur = cfg.NoBlock
	return nil
}

func (lw *lowerer) loopBody(s *ast.ForStmt, header cfg.BlockID) error {
	if err := lw.stmts(s.Body.List); err != nil {
		return err
	}
	if lw.cur == cfg.NoBlock {
		return nil
	}
	if s.Post != nil {
		if err := lw.stmt(s.Post); err != nil {
			return err
		}
	}
	lw.graph.Block(lw.cur).Term = &cfg.Jump{To: header}
	return nil
}

// invariantFor finds a //verify:invariant directive in the comments
// attached to the loop statement.
func (lw *lowerer) invariantFor(s *ast.ForStmt) (string, bool) {
	for _, group := range lw.cmap[s] {
		if inv, ok := directive(group, "invariant"); ok {
			return inv, true
		}
	}
	return "", false
}

func (lw *lowerer) calleeContract(call *ast.CallExpr) (*cfg.Contract, error) {
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		return nil, unsupported("call through a non-identifier")
	}
	ct, ok := lw.contracts[ident.Name]
	if !ok {
		return nil, &cfg.UnsupportedError{Kind: cfg.OpaqueCall, Detail: ident.Name}
	}
	return ct, nil
}

func (lw *lowerer) call(lhs string, call *ast.CallExpr) error {
	ct, err := lw.calleeContract(call)
	if err != nil {
		return err
	}
	args := make([]cond.Expr, len(call.Args))
	for i, arg := range call.Args {
		if args[i], err = lw.expr(arg); err != nil {
			return err
		}
	}
	lw.emit(&cfg.Call{Lhs: lhs, Callee: ct.Name, Args: args})
	return nil
}

func (lw *lowerer) emit(op cfg.Op) {
	block := lw.graph.Block(lw.cur)
	block.Ops = append(block.Ops, op)
}

// expr converts a source expression and resolves its variables, so the
// graph the verifier sees carries no unknown types.
func (lw *lowerer) expr(expr ast.Expr) (cond.Expr, error) {
	converted, err := lw.convert(expr)
	if err != nil {
		return nil, err
	}
	return cond.Resolve(converted, lw.table)
}

// Go's / and % truncate toward zero and panic on a zero divisor; the
// condition language and the solver are Euclidean and total. Bodies using
// them are not lowered.
var binOps = map[token.Token]cond.BinaryOp{
	token.ADD:  cond.OpAdd,
	token.SUB:  cond.OpSub,
	token.MUL:  cond.OpMul,
	token.EQL:  cond.OpEq,
	token.NEQ:  cond.OpNe,
	token.LSS:  cond.OpLt,
	token.LEQ:  cond.OpLe,
	token.GTR:  cond.OpGt,
	token.GEQ:  cond.OpGe,
	token.LAND: cond.OpAnd,
	token.LOR:  cond.OpOr,
}

func (lw *lowerer) convert(expr ast.Expr) (cond.Expr, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT {
			return nil, unsupported("literal " + e.Value)
		}
		v, err := strconv.ParseInt(e.Value, 0, 64)
		if err != nil {
			return nil, unsupported("integer literal " + e.Value)
		}
		return &cond.IntLit{Value: v}, nil
	case *ast.Ident:
		switch e.Name {
		case "true":
			return &cond.BoolLit{Value: true}, nil
		case "false":
			return &cond.BoolLit{Value: false}, nil
		}
		return &cond.Var{Name: e.Name, VarType: cond.TypeUnknown}, nil
	case *ast.BinaryExpr:
		op, ok := binOps[e.Op]
		if !ok {
			return nil, unsupported("operator " + e.Op.String())
		}
		left, err := lw.convert(e.X)
		if err != nil {
			return nil, err
		}
		right, err := lw.convert(e.Y)
		if err != nil {
			return nil, err
		}
		return &cond.Binary{Op: op, Left: left, Right: right}, nil
	case *ast.UnaryExpr:
		operand, err := lw.convert(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.NOT:
			return &cond.Unary{Op: cond.OpNot, Operand: operand}, nil
		case token.SUB:
			return &cond.Unary{Op: cond.OpNeg, Operand: operand}, nil
		}
		return nil, unsupported("operator " + e.Op.String())
	case *ast.ParenExpr:
		return lw.convert(e.X)
	}
	return nil, unsupported("expression")
}
