// Package wp computes weakest preconditions over a control-flow graph by
// walking it backward from the postcondition, the classic predicate
// transformer: assignments substitute, branches split on the guard, loops
// trade a back edge for invariant proof obligations.
package wp

import (
	"fmt"

	"github.com/pkg/errors"

	"gover/internal/cfg"
	"gover/internal/cond"
)

type generator struct {
	graph     *cfg.Graph
	contracts cfg.Contracts
	post      cond.Expr
	headers   map[cfg.BlockID]bool

	// memo caches the weakest precondition per block so diamonds are
	// visited once; loop headers are seeded with their invariant before
	// the body is walked, which is what terminates the recursion.
	memo        map[cfg.BlockID]cond.Expr
	obligations []cond.Expr
	fresh       int
}

// Generate computes wp(entry, post) together with the proof obligations
// collected at loops and call sites. Obligation order follows the
// backward walk, so identical inputs produce identical output.
func Generate(graph *cfg.Graph, contracts cfg.Contracts, post cond.Expr) (pre cond.Expr, obligations []cond.Expr, err error) {
	if graph.Entry == cfg.NoBlock {
		return nil, nil, errors.New("graph has no entry block")
	}
	g := &generator{
		graph:     graph,
		contracts: contracts,
		post:      post,
		headers:   graph.LoopHeaders(),
		memo:      make(map[cfg.BlockID]cond.Expr),
	}
	pre, err = g.wp(graph.Entry)
	if err != nil {
		return nil, nil, err
	}
	return pre, g.obligations, nil
}

func (g *generator) wp(id cfg.BlockID) (cond.Expr, error) {
	if w, ok := g.memo[id]; ok {
		return w, nil
	}
	blk := g.graph.Block(id)
	if g.headers[id] {
		return g.loopHeader(id, blk)
	}

	var (
		w   cond.Expr
		err error
	)
	switch term := blk.Term.(type) {
	case *cfg.Return:
		w = g.post
		if term.Value != nil {
			w = cond.Subst(g.post, cond.RetName, term.Value)
		}
	case *cfg.Jump:
		w, err = g.wp(term.To)
	case *cfg.Branch:
		var thenWP, elseWP cond.Expr
		thenWP, err = g.wp(term.Then)
		if err != nil {
			return nil, err
		}
		elseWP, err = g.wp(term.Else)
		if err != nil {
			return nil, err
		}
		w = cond.And(
			cond.Implies(term.Cond, thenWP),
			cond.Implies(cond.Not(term.Cond), elseWP),
		)
	case nil:
		return nil, errors.Errorf("block %d has no terminator", id)
	default:
		return nil, errors.Errorf("block %d: unexpected terminator %T", id, term)
	}
	if err != nil {
		return nil, err
	}
	w, err = g.opsWP(blk.Ops, w)
	if err != nil {
		return nil, err
	}
	g.memo[id] = w
	return w, nil
}

// loopHeader handles a block targeted by a back edge. Entering the loop
// requires the invariant; preservation and exit become obligations:
//
//	I && g  ==> wp(body, I)
//	I && !g ==> wp(exit, post)
func (g *generator) loopHeader(id cfg.BlockID, blk *cfg.Block) (cond.Expr, error) {
	inv := blk.Invariant
	if inv == nil {
		return nil, &cfg.UnsupportedError{Kind: cfg.UnannotatedLoop}
	}
	if len(blk.Ops) > 0 {
		return nil, &cfg.UnsupportedError{
			Kind:   cfg.UnsupportedConstruct,
			Detail: "loop header with effects before the guard",
		}
	}
	// Seed the memo so the back edge inside the body resolves to the
	// invariant instead of recursing.
	g.memo[id] = inv

	switch term := blk.Term.(type) {
	case *cfg.Branch:
		bodyWP, err := g.wp(term.Then)
		if err != nil {
			return nil, err
		}
		exitWP, err := g.wp(term.Else)
		if err != nil {
			return nil, err
		}
		g.obligations = append(g.obligations,
			cond.Implies(cond.And(inv, term.Cond), bodyWP),
			cond.Implies(cond.And(inv, cond.Not(term.Cond)), exitWP),
		)
	case *cfg.Jump:
		// Guardless loop: only preservation can be required.
		bodyWP, err := g.wp(term.To)
		if err != nil {
			return nil, err
		}
		g.obligations = append(g.obligations, cond.Implies(inv, bodyWP))
	default:
		return nil, errors.Errorf("loop header %d: unexpected terminator %T", id, term)
	}
	return inv, nil
}

// opsWP folds a block's operations backward over the given condition.
func (g *generator) opsWP(ops []cfg.Op, post cond.Expr) (cond.Expr, error) {
	var err error
	for i := len(ops) - 1; i >= 0; i-- {
		switch op := ops[i].(type) {
		case *cfg.Assign:
			post = cond.Subst(post, op.Lhs, op.Rhs)
		case *cfg.Call:
			post, err = g.callWP(op, post)
			if err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("unexpected op %T", op)
		}
	}
	return post, nil
}

// callWP applies the contract rule for `lhs := f(args)`:
//
//	wp = PreF[args/formals] && (PostF[args/formals, u/ret] ==> post[u/lhs])
//
// with u a fresh variable standing for the call's result. Validity
// checking quantifies universally over free variables, so the fresh free
// constant carries the forall.
func (g *generator) callWP(op *cfg.Call, post cond.Expr) (cond.Expr, error) {
	ct, ok := g.contracts[op.Callee]
	if !ok {
		return nil, &cfg.UnsupportedError{Kind: cfg.OpaqueCall, Detail: op.Callee}
	}
	if len(ct.Params) != len(op.Args) {
		return nil, errors.Errorf("call to %s: %d arguments for %d parameters",
			op.Callee, len(op.Args), len(ct.Params))
	}

	calleePre, calleePost := ct.Pre, ct.Post
	for i, formal := range ct.Params {
		calleePre = cond.Subst(calleePre, formal, op.Args[i])
		calleePost = cond.Subst(calleePost, formal, op.Args[i])
	}

	result := g.freshResult(op.Callee, ct.RetType)
	calleePost = cond.Subst(calleePost, cond.RetName, result)
	if op.Lhs != "" {
		post = cond.Subst(post, op.Lhs, result)
	}
	return cond.And(calleePre, cond.Implies(calleePost, post)), nil
}

// freshResult mints a deterministic per-run name for a call result, so
// building the same VC twice yields the same formula. The "$" prefix is
// not a legal identifier start in the condition grammar, so the name can
// never collide with a variable written in an annotation or in source.
func (g *generator) freshResult(callee string, typ cond.Type) cond.Expr {
	g.fresh++
	return &cond.Var{
		Name:    fmt.Sprintf("$%s_ret%d", callee, g.fresh),
		VarType: typ,
	}
}
