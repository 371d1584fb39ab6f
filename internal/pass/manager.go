package pass

import (
	"ssacore/internal/errs"
	"ssacore/internal/ir"

	"github.com/sasha-s/go-deadlock"
)

// Provider computes the named analysis for fn on demand. Registered by
// the owning analysis package (domtree, loopnest, dataflow, ...) via
// Manager.Register before any pass that Requires it runs.
type Provider func(fn *ir.Function) (interface{}, error)

// Manager implements the four-step scheduling contract: run passes over
// every function in source order, resolve each pass's stale
// requirements, invalidate non-preserved analyses (plus anything
// CFG-keyed on a reported CFG change) after each pass, and allow
// mid-sweep block insertion for BasicBlockPass.
type Manager struct {
	providers map[AnalysisKey]Provider
	cache     map[*ir.Function]map[AnalysisKey]interface{}

	// guard is a reentrancy guard, not a concurrency primitive: the
	// pass manager is single-threaded (§5), but a pass's Apply must
	// never call back into the manager while a Get/invalidation cycle
	// for that same function is in flight. go-deadlock reports that
	// violation in tests instead of silently corrupting the cache.
	guard deadlock.RWMutex
}

// NewManager creates an empty manager with no registered analyses.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[AnalysisKey]Provider),
		cache:     make(map[*ir.Function]map[AnalysisKey]interface{}),
	}
}

// Register installs the provider for key, replacing any prior one.
func (m *Manager) Register(key AnalysisKey, p Provider) {
	m.guard.Lock()
	defer m.guard.Unlock()
	m.providers[key] = p
}

// Get returns the current result for key on fn, computing it via the
// registered Provider (and caching it) if stale or absent. Fails with
// AnalysisUnavailable if no provider was registered for key.
func (m *Manager) Get(key AnalysisKey, fn *ir.Function) (interface{}, error) {
	m.guard.Lock()
	defer m.guard.Unlock()
	return m.getLocked(key, fn)
}

func (m *Manager) getLocked(key AnalysisKey, fn *ir.Function) (interface{}, error) {
	if byKey, ok := m.cache[fn]; ok {
		if v, ok := byKey[key]; ok {
			return v, nil
		}
	}
	provider, ok := m.providers[key]
	if !ok {
		return nil, errs.New(errs.AnalysisUnavailable, "no provider registered for analysis %q", key)
	}
	v, err := provider(fn)
	if err != nil {
		return nil, err
	}
	if m.cache[fn] == nil {
		m.cache[fn] = make(map[AnalysisKey]interface{})
	}
	m.cache[fn][key] = v
	return v, nil
}

// invalidate drops every cached analysis for fn not present in keep,
// and — if cfgChanged — drops CFGKey regardless of keep.
func (m *Manager) invalidate(fn *ir.Function, keep []AnalysisKey, cfgChanged bool) {
	byKey := m.cache[fn]
	if byKey == nil {
		return
	}
	keepSet := make(map[AnalysisKey]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}
	for k := range byKey {
		if keepSet[k] && !(cfgChanged && k == CFGKey) {
			continue
		}
		delete(byKey, k)
	}
}

// ensureRequirements computes every analysis p requires that is not
// already cached (step 2 of the scheduling contract). Providers declare
// no requirements of their own, so nothing is resolved transitively.
func (m *Manager) ensureRequirements(p Pass, fn *ir.Function) error {
	for _, key := range p.Requires() {
		if _, err := m.getLocked(key, fn); err != nil {
			return err
		}
	}
	return nil
}

// RunOn runs the pipeline over m in source order, applying the full
// scheduling contract per function. A ModulePass runs once, at its
// position in the pipeline for the first defined function. Returns
// whether any pass modified the module, and the first fatal error
// encountered (which aborts the pipeline immediately with no partial
// invalidation, per §4.2 "Failure").
func (m *Manager) RunOn(mod *ir.Module, pipeline []Pass) (bool, error) {
	modified := false
	ranModulePass := make(map[int]bool)
	for _, fn := range mod.Functions {
		if fn.IsDeclaration() {
			continue
		}
		for i, p := range pipeline {
			if _, ok := p.(ModulePass); ok {
				if ranModulePass[i] {
					continue
				}
				ranModulePass[i] = true
			}
			changed, err := m.runOne(p, mod, fn)
			if err != nil {
				return modified, err
			}
			modified = modified || changed
		}
	}
	return modified, nil
}

func (m *Manager) runOne(p Pass, mod *ir.Module, fn *ir.Function) (bool, error) {
	m.guard.Lock()
	if err := m.ensureRequirements(p, fn); err != nil {
		m.guard.Unlock()
		return false, err
	}
	m.guard.Unlock()

	var changed bool
	var err error
	switch tp := p.(type) {
	case ModulePass:
		changed, err = tp.Apply(mod, m)
	case FunctionPass:
		changed, err = tp.Apply(fn, m)
	case BasicBlockPass:
		changed, err = m.runBasicBlockPass(tp, fn, m)
	default:
		err = errs.New(errs.PassFatal, "pass %q is neither a ModulePass, FunctionPass, nor BasicBlockPass", p.Name())
	}
	if err != nil {
		return false, err
	}

	m.guard.Lock()
	m.invalidate(fn, p.Preserves(), !p.PreservesCFG())
	m.guard.Unlock()
	return changed, nil
}

// runBasicBlockPass iterates fn's blocks in function order, re-reading
// fn.Blocks each step so blocks inserted mid-sweep are visited within
// the same pass invocation (§4.2 step 4).
func (m *Manager) runBasicBlockPass(p BasicBlockPass, fn *ir.Function, am *Manager) (bool, error) {
	changed := false
	for i := 0; i < len(fn.Blocks); i++ {
		b := fn.Blocks[i]
		c, err := p.Apply(b, am)
		if err != nil {
			return false, err
		}
		changed = changed || c
	}
	return changed, nil
}

// Release drops every cached analysis for fn, e.g. at a function
// boundary or pipeline teardown (§3 "Lifecycle").
func (m *Manager) Release(fn *ir.Function) {
	m.guard.Lock()
	defer m.guard.Unlock()
	delete(m.cache, fn)
}
