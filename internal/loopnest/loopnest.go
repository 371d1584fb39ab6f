// Package loopnest identifies natural loops and their nesting
// structure from back-edges discovered via dominance (§4.4).
package loopnest

import (
	"ssacore/internal/domtree"
	"ssacore/internal/ir"
)

// Loop is a natural loop: a header dominating every block in the loop
// body, reached via one or more back-edges into that header.
type Loop struct {
	Header   *ir.BasicBlock
	Parent   *Loop
	SubLoops []*Loop
	blocks   map[*ir.BasicBlock]bool
	order    []*ir.BasicBlock
}

// Blocks returns the loop's body, including the header and every
// nested sub-loop's blocks, in discovery order.
func (l *Loop) Blocks() []*ir.BasicBlock { return l.order }

// Contains reports whether b is part of this loop (directly or via a
// sub-loop).
func (l *Loop) Contains(b *ir.BasicBlock) bool { return l.blocks[b] }

// Analysis is the natural-loop analysis result for one function:
// per-block loop membership and depth, plus the top-level loop forest.
type Analysis struct {
	loopOf    map[*ir.BasicBlock]*Loop
	depthOf   map[*ir.BasicBlock]int
	topLevel  []*Loop
}

// Compute finds every natural loop of fn using dom, the function's
// forward dominance info. Algorithm (§4.4): DFS from entry; for each
// node N, every predecessor P with N dominating P starts a back-edge
// (P,N); flood-fill P's predecessors backward into the loop until
// reaching N; a block discovered to already head another loop wholly
// contained in the new loop becomes that loop's sub-loop instead of a
// plain body block.
func Compute(fn *ir.Function, dom *domtree.Info) *Analysis {
	a := &Analysis{
		loopOf:  make(map[*ir.BasicBlock]*Loop),
		depthOf: make(map[*ir.BasicBlock]int),
	}

	order := ir.ReversePostOrderBlocks(fn)
	headerLoop := make(map[*ir.BasicBlock]*Loop)

	for _, n := range order {
		var backEdgePreds []*ir.BasicBlock
		for _, p := range n.Predecessors {
			if dom.Dominates(n, p) {
				backEdgePreds = append(backEdgePreds, p)
			}
		}
		if len(backEdgePreds) == 0 {
			continue
		}

		loop := headerLoop[n]
		if loop == nil {
			loop = &Loop{Header: n, blocks: map[*ir.BasicBlock]bool{n: true}, order: []*ir.BasicBlock{n}}
			headerLoop[n] = loop
		}

		worklist := append([]*ir.BasicBlock{}, backEdgePreds...)
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]

			if existing, ok := headerLoop[b]; ok && existing != loop {
				// b already heads a loop discovered earlier in this
				// RPO walk; absorb it as a sub-loop rather
				// than flattening its body into loop directly.
				if existing.Parent == nil && existing != loop {
					existing.Parent = loop
					loop.SubLoops = append(loop.SubLoops, existing)
					for _, m := range existing.order {
						if loop.blocks[m] {
							continue
						}
						loop.blocks[m] = true
						loop.order = append(loop.order, m)
					}
					for _, p := range existing.Header.Predecessors {
						if !loop.blocks[p] && !isBackEdgeSource(existing, p) {
							worklist = append(worklist, p)
						}
					}
				}
				continue
			}

			if loop.blocks[b] {
				continue
			}
			loop.blocks[b] = true
			loop.order = append(loop.order, b)
			if b == n {
				continue
			}
			for _, p := range b.Predecessors {
				worklist = append(worklist, p)
			}
		}
	}

	// Nest every loop not absorbed above under the smallest other loop
	// whose body contains its header (an outer header precedes its inner
	// headers in RPO, so most inner loops end up here). Then assign each
	// block to its innermost containing loop and compute depths.
	for _, n := range order {
		inner := headerLoop[n]
		if inner == nil || inner.Parent != nil {
			continue
		}
		for _, outer := range headerLoop {
			if outer != inner && outer.blocks[n] && (inner.Parent == nil || len(outer.order) < len(inner.Parent.order)) {
				inner.Parent = outer
			}
		}
		if inner.Parent == nil {
			a.topLevel = append(a.topLevel, inner)
		} else {
			inner.Parent.SubLoops = append(inner.Parent.SubLoops, inner)
		}
	}
	var assign func(l *Loop, depth int)
	assign = func(l *Loop, depth int) {
		for _, b := range l.order {
			if cur, ok := a.loopOf[b]; !ok || isDeeper(cur, l) {
				a.loopOf[b] = l
			}
		}
		for _, b := range l.order {
			if a.depthOf[b] < depth {
				a.depthOf[b] = depth
			}
		}
		for _, sub := range l.SubLoops {
			assign(sub, depth+1)
		}
	}
	for _, l := range a.topLevel {
		assign(l, 1)
	}

	return a
}

// isDeeper reports whether candidate is nested more deeply than cur
// (i.e. candidate's header is itself inside cur), used to keep loopOf
// pointing at the innermost loop when loop bodies overlap.
func isDeeper(cur, candidate *Loop) bool {
	for p := candidate.Parent; p != nil; p = p.Parent {
		if p == cur {
			return true
		}
	}
	return false
}

// isBackEdgeSource reports whether p is one of the predecessors that
// directly back-edges into l's header (already enqueued), avoiding
// re-walking past the header redundantly.
func isBackEdgeSource(l *Loop, p *ir.BasicBlock) bool {
	return l.blocks[p]
}

// LoopOf returns the innermost loop containing b, or nil if b is not
// in any loop.
func (a *Analysis) LoopOf(b *ir.BasicBlock) *Loop { return a.loopOf[b] }

// DepthOf returns b's loop nesting depth; 0 if b is not in any loop.
func (a *Analysis) DepthOf(b *ir.BasicBlock) int { return a.depthOf[b] }

// TopLevel returns the function's outermost loops.
func (a *Analysis) TopLevel() []*Loop { return a.topLevel }
