package wp

import (
	"gover/internal/cfg"
	"gover/internal/cond"
)

// BuildVC combines a function's contract with its control flow into the
// single verification condition
//
//	pre ==> wp(entry, post) && obligations...
//
// It is pure and deterministic; the result is consumed by the SMT encoder
// and never cached.
func BuildVC(pre, post cond.Expr, graph *cfg.Graph, contracts cfg.Contracts) (cond.Expr, error) {
	weakest, obligations, err := Generate(graph, contracts, post)
	if err != nil {
		return nil, err
	}
	body := weakest
	for _, ob := range obligations {
		body = cond.And(body, ob)
	}
	return cond.Implies(pre, body), nil
}
