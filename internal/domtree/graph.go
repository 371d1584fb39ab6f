// Package domtree computes dominator sets, immediate dominators, the
// dominator tree, and dominance frontiers over a generic Graph — the
// same algorithms serve forward dominance directly and post-dominance
// via Reverse, rather than duplicating the fixpoint and frontier code
// per direction.
package domtree

import "ssacore/internal/ir"

// Graph is the minimal traversal surface the dominance algorithms need.
// ir.Function's CFG satisfies it directly; Reverse wraps any Graph to
// flip edge direction for post-dominance.
type Graph interface {
	Entry() *ir.BasicBlock
	Nodes() []*ir.BasicBlock
	Preds(n *ir.BasicBlock) []*ir.BasicBlock
	Succs(n *ir.BasicBlock) []*ir.BasicBlock
}

// forwardGraph adapts a Function's ordinary CFG to Graph.
type forwardGraph struct {
	fn *ir.Function
}

// Forward returns the ordinary forward-CFG view of fn.
func Forward(fn *ir.Function) Graph { return forwardGraph{fn: fn} }

func (g forwardGraph) Entry() *ir.BasicBlock      { return g.fn.Entry() }
func (g forwardGraph) Nodes() []*ir.BasicBlock     { return g.fn.Blocks }
func (g forwardGraph) Preds(n *ir.BasicBlock) []*ir.BasicBlock { return n.Predecessors }
func (g forwardGraph) Succs(n *ir.BasicBlock) []*ir.BasicBlock { return n.Successors }

// reverseGraph flips Preds/Succs and replaces Entry with a fixed node
// (the unified single exit), per §4.3's "post- variants operate on the
// reverse CFG and require a single-exit function".
type reverseGraph struct {
	inner Graph
	entry *ir.BasicBlock
}

// Reverse returns g with edges reversed and entry as its new root, the
// standard construction for post-dominance.
func Reverse(g Graph, entry *ir.BasicBlock) Graph {
	return reverseGraph{inner: g, entry: entry}
}

func (g reverseGraph) Entry() *ir.BasicBlock              { return g.entry }
func (g reverseGraph) Nodes() []*ir.BasicBlock             { return g.inner.Nodes() }
func (g reverseGraph) Preds(n *ir.BasicBlock) []*ir.BasicBlock { return g.inner.Succs(n) }
func (g reverseGraph) Succs(n *ir.BasicBlock) []*ir.BasicBlock { return g.inner.Preds(n) }
