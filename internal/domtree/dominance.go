package domtree

import "ssacore/internal/ir"

// Info is the computed dominance result for a Graph: dominator sets,
// immediate dominators, and the tree built from them (§4.3).
type Info struct {
	graph  Graph
	dom    map[*ir.BasicBlock]map[*ir.BasicBlock]bool
	idom   map[*ir.BasicBlock]*ir.BasicBlock
	nodes  map[*ir.BasicBlock]*Node
	frozen bool
}

// Node is one entry of the dominator tree: a block, its immediate
// dominator's Node, and its children.
type Node struct {
	Block    *ir.BasicBlock
	IDom     *Node
	Children []*Node
}

// Compute runs the dataflow fixpoint of §4.3 over g: Dom(entry) =
// {entry}; Dom(B) = {B} ∪ ⋂ Dom(P) for P ∈ preds(B), iterated in DFS
// order to convergence. Unreachable blocks get the same fixpoint
// rooted at themselves, so every block in g self-dominates.
func Compute(g Graph) *Info {
	nodes := g.Nodes()
	dom := make(map[*ir.BasicBlock]map[*ir.BasicBlock]bool, len(nodes))

	reachable := reachableFrom(g, g.Entry())

	for _, n := range nodes {
		if n == g.Entry() || !reachable[n] {
			dom[n] = map[*ir.BasicBlock]bool{n: true}
		} else {
			full := make(map[*ir.BasicBlock]bool, len(nodes))
			for _, m := range nodes {
				full[m] = true
			}
			dom[n] = full
		}
	}

	order := reversePostOrder(g)
	if len(order) == 0 {
		order = nodes
	}

	changed := true
	for changed {
		changed = false
		for _, n := range order {
			if n == g.Entry() || !reachable[n] {
				continue
			}
			preds := g.Preds(n)
			var intersection map[*ir.BasicBlock]bool
			for _, p := range preds {
				if !reachable[p] {
					continue
				}
				if intersection == nil {
					intersection = cloneSet(dom[p])
					continue
				}
				intersection = intersectSets(intersection, dom[p])
			}
			if intersection == nil {
				intersection = make(map[*ir.BasicBlock]bool)
			}
			intersection[n] = true
			if !setsEqual(intersection, dom[n]) {
				dom[n] = intersection
				changed = true
			}
		}
	}

	idom := computeIDom(nodes, dom, g.Entry())
	treeNodes := buildTree(nodes, idom)

	return &Info{graph: g, dom: dom, idom: idom, nodes: treeNodes}
}

// reversePostOrder walks g from its entry in postorder (via Succs) and
// reverses it, giving the standard visitation order for the forward
// dataflow fixpoint — and, when g is itself a Reverse view, the correct
// order for the post-dominance fixpoint too, since it walks g's own
// Succs rather than assuming a forward ir.Function CFG.
func reversePostOrder(g Graph) []*ir.BasicBlock {
	entry := g.Entry()
	if entry == nil {
		return nil
	}
	visited := make(map[*ir.BasicBlock]bool)
	var post []*ir.BasicBlock
	var visit func(n *ir.BasicBlock)
	visit = func(n *ir.BasicBlock) {
		visited[n] = true
		for _, s := range g.Succs(n) {
			if !visited[s] {
				visit(s)
			}
		}
		post = append(post, n)
	}
	visit(entry)
	rpo := make([]*ir.BasicBlock, len(post))
	for i, n := range post {
		rpo[len(post)-1-i] = n
	}
	return rpo
}

func reachableFrom(g Graph, entry *ir.BasicBlock) map[*ir.BasicBlock]bool {
	seen := make(map[*ir.BasicBlock]bool)
	if entry == nil {
		return seen
	}
	var stack []*ir.BasicBlock
	stack = append(stack, entry)
	seen[entry] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range g.Succs(n) {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

func cloneSet(s map[*ir.BasicBlock]bool) map[*ir.BasicBlock]bool {
	out := make(map[*ir.BasicBlock]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectSets(a, b map[*ir.BasicBlock]bool) map[*ir.BasicBlock]bool {
	out := make(map[*ir.BasicBlock]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setsEqual(a, b map[*ir.BasicBlock]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// computeIDom picks, for each non-entry block, the unique D in
// Dom(B)\{B} with |Dom(D)| = |Dom(B)|-1 (§4.3 "Immediate dominator").
func computeIDom(nodes []*ir.BasicBlock, dom map[*ir.BasicBlock]map[*ir.BasicBlock]bool, entry *ir.BasicBlock) map[*ir.BasicBlock]*ir.BasicBlock {
	idom := make(map[*ir.BasicBlock]*ir.BasicBlock, len(nodes))
	idom[entry] = nil
	for _, n := range nodes {
		if n == entry {
			continue
		}
		target := len(dom[n]) - 1
		for d := range dom[n] {
			if d == n {
				continue
			}
			if len(dom[d]) == target {
				idom[n] = d
				break
			}
		}
	}
	return idom
}

func buildTree(nodes []*ir.BasicBlock, idom map[*ir.BasicBlock]*ir.BasicBlock) map[*ir.BasicBlock]*Node {
	treeNodes := make(map[*ir.BasicBlock]*Node, len(nodes))
	for _, n := range nodes {
		treeNodes[n] = &Node{Block: n}
	}
	for _, n := range nodes {
		if d, ok := idom[n]; ok && d != nil {
			treeNodes[n].IDom = treeNodes[d]
			treeNodes[d].Children = append(treeNodes[d].Children, treeNodes[n])
		}
	}
	return treeNodes
}

// Dominates reports whether a dominates b (A ∈ Dom(B)), O(depth) via
// the dominator tree.
func (info *Info) Dominates(a, b *ir.BasicBlock) bool {
	if a == b {
		return true
	}
	n, ok := info.nodes[b]
	if !ok {
		return false
	}
	for cur := n.IDom; cur != nil; cur = cur.IDom {
		if cur.Block == a {
			return true
		}
	}
	return false
}

// StrictlyDominates reports whether a strictly dominates b.
func (info *Info) StrictlyDominates(a, b *ir.BasicBlock) bool {
	return a != b && info.Dominates(a, b)
}

// IDom returns b's immediate dominator, or nil for the entry block.
func (info *Info) IDom(b *ir.BasicBlock) *ir.BasicBlock { return info.idom[b] }

// DomSet returns the dominator set of b. The caller must not mutate
// the returned map.
func (info *Info) DomSet(b *ir.BasicBlock) map[*ir.BasicBlock]bool { return info.dom[b] }

// Node returns the dominator-tree node for b.
func (info *Info) Node(b *ir.BasicBlock) *Node { return info.nodes[b] }

// SetIDom re-parents b under newIDom, updating both nodes' child
// lists (§4.3 "Supports setIDom which re-parents and updates child
// lists").
func (info *Info) SetIDom(b, newIDom *ir.BasicBlock) {
	n := info.nodes[b]
	if n.IDom != nil {
		siblings := n.IDom.Children
		for i, c := range siblings {
			if c == n {
				n.IDom.Children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	newNode := info.nodes[newIDom]
	n.IDom = newNode
	newNode.Children = append(newNode.Children, n)
	info.idom[b] = newIDom
}
