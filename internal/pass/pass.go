// Package pass implements the pass manager's scheduling contract: a
// pipeline of module/function/basic-block passes run over a module,
// with lazily-computed, dependency-resolved, bulk-invalidated
// analyses in between.
package pass

import "ssacore/internal/ir"

// AnalysisKey identifies an analysis kind in the manager's cache. Each
// analysis package exports its own key value (e.g. transform.DomtreeKey)
// rather than the manager assigning RTTI-style IDs — a typed registry,
// per the package's own recommendation over reflection-based dispatch.
type AnalysisKey struct {
	name string
}

// NewAnalysisKey creates a distinct key identified by name, for
// diagnostics and cache logging.
func NewAnalysisKey(name string) AnalysisKey { return AnalysisKey{name: name} }

func (k AnalysisKey) String() string { return k.name }

// CFGKey is the well-known key for an analysis that must be dropped on
// every CFG change: after a pass whose PreservesCFG() is false, the
// manager invalidates the CFGKey entry even if the pass lists it in
// Preserves(). An analysis registered under any other key is dropped
// only when the pass does not list that key in Preserves().
var CFGKey = NewAnalysisKey("cfg")

// Pass is the common surface of ModulePass, FunctionPass, and
// BasicBlockPass: the dependency declarations the manager consults
// before and after running it.
type Pass interface {
	Name() string
	Requires() []AnalysisKey
	Preserves() []AnalysisKey
	PreservesCFG() bool
}

// ModulePass runs once per module, e.g. Internalize.
type ModulePass interface {
	Pass
	Apply(m *ir.Module, am *Manager) (modified bool, err error)
}

// FunctionPass runs once per function, in source order.
type FunctionPass interface {
	Pass
	Apply(fn *ir.Function, am *Manager) (modified bool, err error)
}

// BasicBlockPass runs once per block of a function; blocks created
// mid-sweep (e.g. by SimplifyCFG splitting a block) are visited within
// the same sweep per §4.2 step 4.
type BasicBlockPass interface {
	Pass
	Apply(b *ir.BasicBlock, am *Manager) (modified bool, err error)
}
