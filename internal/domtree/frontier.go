package domtree

import "ssacore/internal/ir"

// Frontier holds the dominance frontier of every block, computed
// bottom-up over the dominator tree in a single recursive pass (§4.3):
// DF(N) = DF_local(N) ∪ ⋃_{C∈children(N)} DF_up(C), where
// DF_local(N) = {S ∈ succ(N) | idom(S) ≠ N} and
// DF_up(C) = {W ∈ DF(C) | N does not strictly dominate W}.
type Frontier struct {
	info *Info
	df   map[*ir.BasicBlock]*ir.BlockSetVector
}

// ComputeFrontier derives the dominance frontier from an already-
// computed Info.
func ComputeFrontier(info *Info) *Frontier {
	f := &Frontier{info: info, df: make(map[*ir.BasicBlock]*ir.BlockSetVector)}
	if entry := info.graph.Entry(); entry != nil {
		f.visit(info.nodes[entry])
	}
	return f
}

func (f *Frontier) visit(n *Node) {
	set := ir.NewBlockSetVector()
	for _, s := range f.info.graph.Succs(n.Block) {
		if f.info.IDom(s) != n.Block {
			set.Insert(s)
		}
	}
	for _, c := range n.Children {
		f.visit(c)
		for _, w := range f.df[c.Block].Items() {
			if !f.info.StrictlyDominates(n.Block, w) {
				set.Insert(w)
			}
		}
	}
	f.df[n.Block] = set
}

// Of returns the dominance frontier of b in insertion order.
func (f *Frontier) Of(b *ir.BasicBlock) []*ir.BasicBlock {
	set, ok := f.df[b]
	if !ok {
		return nil
	}
	return set.Items()
}

// IteratedFrontier returns DF+(S): repeatedly unioning in the frontier
// of every block already in the result until it stops growing. Used by
// mem2reg (§4.5.7) to place φ-nodes for a variable's definition set.
func (f *Frontier) IteratedFrontier(blocks []*ir.BasicBlock) []*ir.BasicBlock {
	result := ir.NewBlockSetVector()
	worklist := append([]*ir.BasicBlock{}, blocks...)
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		for _, w := range f.Of(b) {
			if result.Insert(w) {
				worklist = append(worklist, w)
			}
		}
	}
	return result.Items()
}
