package domtree

import "ssacore/internal/ir"

// Unification holds the synthetic single exit block a function's
// post-dominance analysis needed, if any. It is wired directly into
// the CFG adjacency lists (Predecessors/Successors) of the real exit
// blocks — not via an actual jump instruction, since those blocks
// already end in their own terminator and the IR forbids appending
// after one. Release tears the synthetic block back out.
type Unification struct {
	fn        *ir.Function
	Exit      *ir.BasicBlock
	synthetic bool
	realExits []*ir.BasicBlock
}

// exitBlocks returns every block of fn with no successors: return and
// unreachable terminators alike, per §4.3's "single-exit function".
func exitBlocks(fn *ir.Function) []*ir.BasicBlock {
	var exits []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if len(b.Successors) == 0 {
			exits = append(exits, b)
		}
	}
	return exits
}

// Unify inserts a synthetic exit block wired as the sole successor of
// every real exit block, when fn has more than one. If fn already has
// exactly one exit, Unify returns it directly with no synthetic block.
func Unify(fn *ir.Function) *Unification {
	exits := exitBlocks(fn)
	if len(exits) <= 1 {
		u := &Unification{fn: fn, realExits: exits}
		if len(exits) == 1 {
			u.Exit = exits[0]
		}
		return u
	}

	synthetic := &ir.BasicBlock{ID: -1, Label: fn.Name + ".synthetic_exit", Func: fn}
	for _, e := range exits {
		e.Successors = append(e.Successors, synthetic)
		synthetic.Predecessors = append(synthetic.Predecessors, e)
	}
	fn.Blocks = append(fn.Blocks, synthetic)

	return &Unification{fn: fn, Exit: synthetic, synthetic: true, realExits: exits}
}

// Graph returns the forward-CFG view including the synthetic exit (if
// any), suitable for wrapping in Reverse to compute post-dominance.
func (u *Unification) Graph() Graph { return Forward(u.fn) }

// IsSynthetic reports whether Exit is the placeholder block Unify
// inserted to join multiple real exits, as opposed to a genuine single
// real exit that is already an ordinary member of fn.Blocks.
func (u *Unification) IsSynthetic() bool { return u.synthetic }

// Release tears down the synthetic exit block, if one was inserted,
// restoring every real exit's successor list and removing the
// synthetic block from the function.
func (u *Unification) Release() {
	if !u.synthetic {
		return
	}
	for _, e := range u.realExits {
		e.Successors = e.Successors[:len(e.Successors)-1]
	}
	blocks := u.fn.Blocks
	for i, b := range blocks {
		if b == u.Exit {
			u.fn.Blocks = append(blocks[:i], blocks[i+1:]...)
			break
		}
	}
	u.synthetic = false
}
