package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssacore/internal/ir"
)

var testKey = NewAnalysisKey("test.counter")

// countingPass increments a shared counter every time its Apply runs,
// letting tests observe whether the manager re-ran a pass or served a
// cached analysis.
type countingPass struct {
	requires     []AnalysisKey
	preserves    []AnalysisKey
	preservesCFG bool
	modifies     bool
}

func (p countingPass) Name() string             { return "counting" }
func (p countingPass) Requires() []AnalysisKey   { return p.requires }
func (p countingPass) Preserves() []AnalysisKey  { return p.preserves }
func (p countingPass) PreservesCFG() bool        { return p.preservesCFG }

func (p countingPass) Apply(fn *ir.Function, am *Manager) (bool, error) {
	return p.modifies, nil
}

func newTestFunction() *ir.Function {
	m := ir.NewModule("test")
	voidT := m.Types.VoidType()
	fn := ir.NewFunction("f", nil, voidT)
	m.AddFunction(fn)
	b := fn.NewBlock("entry")
	_, _ = ir.NewReturn(fn, b, nil)
	return fn
}

func TestGetCachesAnalysis(t *testing.T) {
	fn := newTestFunction()
	am := NewManager()
	calls := 0
	am.Register(testKey, func(fn *ir.Function) (interface{}, error) {
		calls++
		return calls, nil
	})

	v1, err := am.Get(testKey, fn)
	require.NoError(t, err)
	v2, err := am.Get(testKey, fn)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestRunOnInvalidatesNonPreservedAnalyses(t *testing.T) {
	fn := newTestFunction()
	am := NewManager()
	calls := 0
	am.Register(testKey, func(fn *ir.Function) (interface{}, error) {
		calls++
		return calls, nil
	})

	_, err := am.Get(testKey, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	p := countingPass{preservesCFG: true}
	_, err = am.RunOn(fn.Module, []Pass{p})
	require.NoError(t, err)

	_, err = am.Get(testKey, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "analysis not in Preserves() should be recomputed after a pass runs")
}

func TestRunOnKeepsPreservedAnalysis(t *testing.T) {
	fn := newTestFunction()
	am := NewManager()
	calls := 0
	am.Register(testKey, func(fn *ir.Function) (interface{}, error) {
		calls++
		return calls, nil
	})

	_, err := am.Get(testKey, fn)
	require.NoError(t, err)

	p := countingPass{preserves: []AnalysisKey{testKey}, preservesCFG: true}
	_, err = am.RunOn(fn.Module, []Pass{p})
	require.NoError(t, err)

	_, err = am.Get(testKey, fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "analysis in Preserves() should survive")
}

func TestRunOnInvalidatesCFGKeyedAnalysisOnCFGChange(t *testing.T) {
	fn := newTestFunction()
	am := NewManager()
	calls := 0
	am.Register(CFGKey, func(fn *ir.Function) (interface{}, error) {
		calls++
		return calls, nil
	})

	_, err := am.Get(CFGKey, fn)
	require.NoError(t, err)

	// Even though the pass claims to preserve CFGKey, PreservesCFG()
	// false forces its invalidation.
	p := countingPass{preserves: []AnalysisKey{CFGKey}, preservesCFG: false}
	_, err = am.RunOn(fn.Module, []Pass{p})
	require.NoError(t, err)

	_, err = am.Get(CFGKey, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEnsureRequirementsResolvesBeforeApply(t *testing.T) {
	fn := newTestFunction()
	am := NewManager()
	resolved := false
	am.Register(testKey, func(fn *ir.Function) (interface{}, error) {
		resolved = true
		return nil, nil
	})

	p := countingPass{requires: []AnalysisKey{testKey}, preservesCFG: true}
	_, err := am.RunOn(fn.Module, []Pass{p})
	require.NoError(t, err)
	assert.True(t, resolved)
}

func TestGetFailsWithoutProvider(t *testing.T) {
	fn := newTestFunction()
	am := NewManager()
	_, err := am.Get(NewAnalysisKey("missing"), fn)
	assert.Error(t, err)
}
