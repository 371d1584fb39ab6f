package transform

import (
	"ssacore/internal/ir"
	"ssacore/internal/pass"
)

// Strip removes declarations and globals nothing in the module
// references (§4.5.9): an external function declaration with no
// `call` instruction naming it anywhere in the module, and a global
// with an empty use-list. Symbol-table entries for anything removed
// are dropped too, so a later lookup can't resurrect a dangling name.
type Strip struct{}

func (Strip) Name() string                  { return "strip" }
func (Strip) Requires() []pass.AnalysisKey  { return nil }
func (Strip) Preserves() []pass.AnalysisKey { return nil }
func (Strip) PreservesCFG() bool            { return true }

func (Strip) Apply(m *ir.Module, am *pass.Manager) (bool, error) {
	called := calledNames(m)

	changed := false
	var keptFns []*ir.Function
	for _, fn := range m.Functions {
		if fn.IsDeclaration() && !called[fn.Name] {
			changed = true
			continue
		}
		keptFns = append(keptFns, fn)
	}
	m.Functions = keptFns

	var keptGlobals []*ir.Value
	for _, g := range m.Globals {
		if len(g.Uses) == 0 {
			changed = true
			continue
		}
		keptGlobals = append(keptGlobals, g)
	}
	m.Globals = keptGlobals

	if changed {
		rebuildSymbols(m)
	}
	return changed, nil
}

func calledNames(m *ir.Module) map[string]bool {
	names := make(map[string]bool)
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				if inst.Op == ir.OpCall {
					names[inst.Callee] = true
				}
			}
		}
	}
	return names
}

func rebuildSymbols(m *ir.Module) {
	m.Symbols.Clear()
	for _, fn := range m.Functions {
		m.Symbols.BindFunction(fn.Name, fn)
	}
	for _, g := range m.Globals {
		m.Symbols.BindValue(g.Name, g)
	}
}

// Internalize downgrades every externally-visible function not named
// in keep to Internal linkage (§4.5.9), the prerequisite that lets
// later aggressive interprocedural simplification assume a closed set
// of callers. A function whose name appears in keep (typically an
// entry point or an ABI boundary) keeps External linkage.
type Internalize struct {
	Keep map[string]bool
}

func (Internalize) Name() string                  { return "internalize" }
func (Internalize) Requires() []pass.AnalysisKey  { return nil }
func (Internalize) Preserves() []pass.AnalysisKey { return nil }
func (Internalize) PreservesCFG() bool            { return true }

func (in Internalize) Apply(m *ir.Module, am *pass.Manager) (bool, error) {
	changed := false
	for _, fn := range m.Functions {
		if fn.Linkage == ir.Internal {
			continue
		}
		if in.Keep[fn.Name] {
			continue
		}
		fn.Linkage = ir.Internal
		changed = true
	}
	return changed, nil
}
