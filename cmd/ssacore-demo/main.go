// SPDX-License-Identifier: Apache-2.0

// Command ssacore-demo is a thin wiring example, not a driver CLI: it
// builds one small IR function by hand, assembles a pipeline from a
// YAML document, registers the analyses the pipeline's passes require,
// runs it, and prints the before/after IR plus a metrics teardown
// report. It exists to show how the collaborator seams (domtree,
// pass.Manager, metrics, pipeline) fit together end to end.
package main

import (
	"fmt"
	"os"

	"ssacore/internal/domtree"
	"ssacore/internal/ir"
	"ssacore/internal/metrics"
	"ssacore/internal/pass"
	"ssacore/internal/pipeline"
	"ssacore/internal/transform"
)

const defaultPipeline = `
passes:
  - name: const_prop
  - name: simplify_cfg
  - name: mem2reg
  - name: dce
  - name: simplify_cfg
`

func main() {
	mod := buildSampleModule()
	fn := mod.Functions[0]

	fmt.Println("=== before ===")
	fmt.Print(ir.PrintFunction(fn))

	reg := pipeline.NewRegistry()
	reg.Register("ConstProp", func(map[string]interface{}) (pass.Pass, error) { return transform.ConstProp{}, nil })
	reg.Register("Dce", func(map[string]interface{}) (pass.Pass, error) { return transform.DCE{}, nil })
	reg.Register("SimplifyCfg", func(map[string]interface{}) (pass.Pass, error) { return transform.SimplifyCFG{}, nil })
	reg.Register("Mem2Reg", func(map[string]interface{}) (pass.Pass, error) { return transform.Mem2Reg{}, nil })

	passes, err := pipeline.Load([]byte(defaultPipeline), reg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading pipeline:", err)
		os.Exit(1)
	}

	am := pass.NewManager()
	am.Register(transform.DomtreeKey, func(fn *ir.Function) (interface{}, error) {
		return domtree.Compute(domtree.Forward(fn)), nil
	})

	counters := metrics.NewCounters()
	for _, p := range passes {
		changed, err := am.RunOn(mod, []pass.Pass{p})
		if err != nil {
			fmt.Fprintln(os.Stderr, "running pipeline:", err)
			os.Exit(1)
		}
		counters.Record(p.Name(), changed)
	}
	am.Release(fn)

	fmt.Println("=== after ===")
	fmt.Print(ir.PrintFunction(fn))

	fmt.Println("=== metrics ===")
	fmt.Print(counters.Report())
}

// buildSampleModule hand-builds `i32 @sample(i32 %n)`: it stack-
// allocates an accumulator, seeds it with a foldable constant
// expression, conditionally adds the parameter, then loads and
// returns it — exercising constant folding, mem2reg promotion, and
// CFG simplification in one small function.
func buildSampleModule() *ir.Module {
	mod := ir.NewModule("sample")
	i32 := mod.Types.IntType(32, true)
	boolT := mod.Types.BoolType()

	fn := ir.NewFunction("sample", []ir.TypeID{i32}, i32)
	mod.AddFunction(fn)
	n := fn.AddParam("n", i32)

	entry := fn.NewBlock("entry")
	thenB := fn.NewBlock("then")
	join := fn.NewBlock("join")

	acc, _ := ir.NewAlloca(fn, entry, i32, "acc")
	two := mod.NewConstant(i32, int64(2))
	three := mod.NewConstant(i32, int64(3))
	folded, _ := ir.NewBinary(fn, entry, ir.Add, two, three, i32, "folded")
	_, _ = ir.NewStore(fn, entry, acc.Result, folded.Result, false)

	zero := mod.NewConstant(i32, int64(0))
	cond, _ := ir.NewCompare(fn, entry, ir.CmpGT, n, zero, boolT, "cond")
	_, _ = ir.NewCondBranch(fn, entry, cond.Result, thenB.AsValue(), join.AsValue())

	loaded, _ := ir.NewLoad(fn, thenB, acc.Result, i32, false, "loaded")
	sum, _ := ir.NewBinary(fn, thenB, ir.Add, loaded.Result, n, i32, "sum")
	_, _ = ir.NewStore(fn, thenB, acc.Result, sum.Result, false)
	_, _ = ir.NewJump(fn, thenB, join.AsValue())

	result, _ := ir.NewLoad(fn, join, acc.Result, i32, false, "result")
	_, _ = ir.NewReturn(fn, join, result.Result)

	return mod
}
