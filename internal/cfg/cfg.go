// Package cfg is the normalized control-flow view the verifier consumes:
// an arena of basic blocks addressed by stable integer IDs, so backward
// traversals can memoize per block without holding references into the
// host compiler's representation.
package cfg

import (
	"gover/internal/cond"
)

type BlockID int

const NoBlock BlockID = -1

// Op is a primitive operation inside a basic block.
type Op interface{ opNode() }

// Assign is `Lhs := Rhs`.
type Assign struct {
	Lhs string
	Rhs cond.Expr
}

// Call is `Lhs := Callee(Args...)`. Lhs may be empty when the result is
// discarded.
type Call struct {
	Lhs    string
	Callee string
	Args   []cond.Expr
}

func (*Assign) opNode() {}
func (*Call) opNode()   {}

// Terminator ends a basic block.
type Terminator interface{ termNode() }

// Branch transfers to Then when Cond holds, Else otherwise.
type Branch struct {
	Cond cond.Expr
	Then BlockID
	Else BlockID
}

type Jump struct {
	To BlockID
}

// Return ends the function yielding Value.
type Return struct {
	Value cond.Expr
}

func (*Branch) termNode() {}
func (*Jump) termNode()   {}
func (*Return) termNode() {}

// Block is a straight-line run of ops ending in a terminator. Invariant is
// the annotated loop invariant when the block heads a loop, nil otherwise.
type Block struct {
	Ops       []Op
	Term      Terminator
	Invariant cond.Expr
}

// Graph is one function's control-flow graph.
type Graph struct {
	Blocks []*Block
	Entry  BlockID
}

func NewGraph() *Graph {
	return &Graph{Entry: NoBlock}
}

// NewBlock appends an empty block to the arena and returns its ID.
func (g *Graph) NewBlock() BlockID {
	g.Blocks = append(g.Blocks, &Block{})
	return BlockID(len(g.Blocks) - 1)
}

func (g *Graph) Block(id BlockID) *Block {
	return g.Blocks[id]
}

func (g *Graph) Successors(id BlockID) []BlockID {
	switch term := g.Blocks[id].Term.(type) {
	case *Branch:
		return []BlockID{term.Then, term.Else}
	case *Jump:
		return []BlockID{term.To}
	}
	return nil
}

// LoopHeaders returns the set of blocks targeted by a back edge, found by
// depth-first search from the entry.
func (g *Graph) LoopHeaders() map[BlockID]bool {
	var (
		headers = make(map[BlockID]bool)
		visited = make(map[BlockID]bool)
		onPath  = make(map[BlockID]bool)
	)
	var walk func(id BlockID)
	walk = func(id BlockID) {
		visited[id] = true
		onPath[id] = true
		for _, succ := range g.Successors(id) {
			if onPath[succ] {
				headers[succ] = true
				continue
			}
			if !visited[succ] {
				walk(succ)
			}
		}
		onPath[id] = false
	}
	if g.Entry != NoBlock {
		walk(g.Entry)
	}
	return headers
}

// Contract is a callee's verified interface: its formal parameter names in
// declaration order and its resolved pre/postconditions. The postcondition
// refers to the result through cond.RetName.
type Contract struct {
	Name    string
	Params  []string
	RetType cond.Type
	Pre     cond.Expr
	Post    cond.Expr
}

// Contracts indexes contracts by function name for call-site lookup.
type Contracts map[string]*Contract
