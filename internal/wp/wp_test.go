package wp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gover/internal/cfg"
	"gover/internal/cond"
)

func intTable(names ...string) *cond.VariableTable {
	table := cond.NewVariableTable(cond.TypeInt)
	for _, name := range names {
		table.Declare(name, cond.TypeInt)
	}
	return table
}

func resolved(t *testing.T, table *cond.VariableTable, src string) cond.Expr {
	t.Helper()
	expr, err := cond.Parse(src)
	require.NoError(t, err)
	expr, err = cond.Resolve(expr, table)
	require.NoError(t, err)
	return expr
}

// wp of `x := x + 1` against postcondition `x > 0` is `x + 1 > 0`.
func TestGenerateAssignment(t *testing.T) {
	table := intTable("x")
	g := cfg.NewGraph()
	entry := g.NewBlock()
	g.Entry = entry
	g.Block(entry).Ops = []cfg.Op{
		&cfg.Assign{Lhs: "x", Rhs: resolved(t, table, "x + 1")},
	}
	g.Block(entry).Term = &cfg.Return{}

	weakest, obligations, err := Generate(g, nil, resolved(t, table, "x > 0"))
	require.NoError(t, err)
	assert.Empty(t, obligations)
	assert.True(t, cond.Equal(resolved(t, table, "x + 1 > 0"), weakest),
		"got %s", weakest)
}

// wp of `if x > 0 { y := 1 } else { y := -1 }` against `y != 0` splits on
// the guard.
func TestGenerateConditional(t *testing.T) {
	table := intTable("x", "y")
	g := cfg.NewGraph()
	entry := g.NewBlock()
	thenB := g.NewBlock()
	elseB := g.NewBlock()
	join := g.NewBlock()
	g.Entry = entry

	g.Block(entry).Term = &cfg.Branch{Cond: resolved(t, table, "x > 0"), Then: thenB, Else: elseB}
	g.Block(thenB).Ops = []cfg.Op{&cfg.Assign{Lhs: "y", Rhs: resolved(t, table, "1")}}
	g.Block(thenB).Term = &cfg.Jump{To: join}
	g.Block(elseB).Ops = []cfg.Op{&cfg.Assign{Lhs: "y", Rhs: resolved(t, table, "-1")}}
	g.Block(elseB).Term = &cfg.Jump{To: join}
	g.Block(join).Term = &cfg.Return{}

	weakest, _, err := Generate(g, nil, resolved(t, table, "y != 0"))
	require.NoError(t, err)
	want := resolved(t, table, "(x > 0 ==> 1 != 0) && (!(x > 0) ==> -1 != 0)")
	assert.True(t, cond.Equal(want, weakest), "got %s", weakest)
}

// A return substitutes the returned expression for ret.
func TestGenerateReturn(t *testing.T) {
	table := intTable("x")
	g := cfg.NewGraph()
	entry := g.NewBlock()
	g.Entry = entry
	g.Block(entry).Term = &cfg.Return{Value: resolved(t, table, "x - 10")}

	weakest, _, err := Generate(g, nil, resolved(t, table, "ret > 0"))
	require.NoError(t, err)
	assert.True(t, cond.Equal(resolved(t, table, "x - 10 > 0"), weakest),
		"got %s", weakest)
}

func loopGraph(t *testing.T, table *cond.VariableTable, invariant cond.Expr) *cfg.Graph {
	t.Helper()
	g := cfg.NewGraph()
	entry := g.NewBlock()
	header := g.NewBlock()
	body := g.NewBlock()
	exit := g.NewBlock()
	g.Entry = entry

	g.Block(entry).Term = &cfg.Jump{To: header}
	g.Block(header).Term = &cfg.Branch{Cond: resolved(t, table, "i > 0"), Then: body, Else: exit}
	g.Block(header).Invariant = invariant
	g.Block(body).Ops = []cfg.Op{&cfg.Assign{Lhs: "i", Rhs: resolved(t, table, "i - 1")}}
	g.Block(body).Term = &cfg.Jump{To: header}
	g.Block(exit).Term = &cfg.Return{Value: resolved(t, table, "i")}
	return g
}

func TestGenerateUnannotatedLoop(t *testing.T) {
	table := intTable("i")
	g := loopGraph(t, table, nil)

	_, _, err := Generate(g, nil, resolved(t, table, "ret >= 0"))
	require.Error(t, err)
	var uerr *cfg.UnsupportedError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, cfg.UnannotatedLoop, uerr.Kind)
}

func TestGenerateLoopObligations(t *testing.T) {
	table := intTable("i")
	inv := resolved(t, table, "i >= 0")
	g := loopGraph(t, table, inv)

	weakest, obligations, err := Generate(g, nil, resolved(t, table, "ret >= 0"))
	require.NoError(t, err)

	// Entering the loop requires the invariant; preservation and exit
	// become obligations.
	assert.True(t, cond.Equal(inv, weakest), "got %s", weakest)
	require.Len(t, obligations, 2)
	preserve := resolved(t, table, "i >= 0 && i > 0 ==> i - 1 >= 0")
	exit := resolved(t, table, "i >= 0 && !(i > 0) ==> i >= 0")
	assert.True(t, cond.Equal(preserve, obligations[0]), "got %s", obligations[0])
	assert.True(t, cond.Equal(exit, obligations[1]), "got %s", obligations[1])
}

func callGraph(t *testing.T, table *cond.VariableTable) (*cfg.Graph, cfg.Contracts) {
	t.Helper()
	absTable := cond.NewVariableTable(cond.TypeInt)
	absTable.Declare("v", cond.TypeInt)
	contracts := cfg.Contracts{
		"abs": &cfg.Contract{
			Name:    "abs",
			Params:  []string{"v"},
			RetType: cond.TypeInt,
			Pre:     resolved(t, absTable, "true"),
			Post:    resolved(t, absTable, "ret >= 0"),
		},
	}

	g := cfg.NewGraph()
	entry := g.NewBlock()
	g.Entry = entry
	g.Block(entry).Ops = []cfg.Op{
		&cfg.Call{Lhs: "y", Callee: "abs", Args: []cond.Expr{resolved(t, table, "x")}},
	}
	g.Block(entry).Term = &cfg.Return{Value: resolved(t, table, "y")}
	return g, contracts
}

func TestGenerateCallContract(t *testing.T) {
	table := intTable("x", "y")
	g, contracts := callGraph(t, table)

	weakest, obligations, err := Generate(g, contracts, resolved(t, table, "ret >= 0"))
	require.NoError(t, err)
	assert.Empty(t, obligations)
	// Fresh result variable stands for the call's value.
	assert.Equal(t, "true && ($abs_ret1 >= 0 ==> $abs_ret1 >= 0)", weakest.String())
}

// A source variable that happens to be named like a minted call result
// must stay distinct from it.
func TestGenerateCallResultAvoidsCapture(t *testing.T) {
	table := intTable("x", "y", "abs_ret1")
	g, contracts := callGraph(t, table)

	weakest, _, err := Generate(g, contracts, resolved(t, table, "ret >= abs_ret1"))
	require.NoError(t, err)
	assert.Equal(t, "true && ($abs_ret1 >= 0 ==> $abs_ret1 >= abs_ret1)", weakest.String())
}

func TestGenerateOpaqueCall(t *testing.T) {
	table := intTable("x", "y")
	g, _ := callGraph(t, table)

	_, _, err := Generate(g, nil, resolved(t, table, "ret >= 0"))
	require.Error(t, err)
	var uerr *cfg.UnsupportedError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, cfg.OpaqueCall, uerr.Kind)
	assert.Equal(t, "abs", uerr.Detail)
}

// Building the VC twice from identical inputs yields syntactically
// identical formulas.
func TestBuildVCIdempotent(t *testing.T) {
	table := intTable("x", "y")
	g, contracts := callGraph(t, table)
	pre := resolved(t, table, "x > 0")
	post := resolved(t, table, "ret >= 0")

	first, err := BuildVC(pre, post, g, contracts)
	require.NoError(t, err)
	second, err := BuildVC(pre, post, g, contracts)
	require.NoError(t, err)
	assert.True(t, cond.Equal(first, second))
	assert.Equal(t, first.String(), second.String())
}

func TestBuildVCShape(t *testing.T) {
	table := intTable("x")
	g := cfg.NewGraph()
	entry := g.NewBlock()
	g.Entry = entry
	g.Block(entry).Term = &cfg.Return{Value: resolved(t, table, "x - 10")}

	vc, err := BuildVC(resolved(t, table, "x > 0"), resolved(t, table, "ret > 0"), g, nil)
	require.NoError(t, err)
	assert.Equal(t, "x > 0 ==> x - 10 > 0", vc.String())
	assert.NoError(t, cond.CheckCondition(vc))
}
