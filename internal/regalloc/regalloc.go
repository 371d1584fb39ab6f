// Package regalloc implements linear-scan register allocation over
// live intervals (§4.8), including spill-code insertion and the final
// virtual-to-physical rewrite.
package regalloc

import (
	"sort"

	"ssacore/internal/liveinterval"
	"ssacore/internal/machine"
	"ssacore/internal/target"
)

// Allocator runs linear-scan over one MachineFunction.
type Allocator struct {
	fn  *machine.MachineFunction
	reg target.RegisterInfo

	unhandled []*liveinterval.Interval
	fixed     []*liveinterval.Interval
	active    []*liveinterval.Interval
	inactive  []*liveinterval.Interval
	handled   []*liveinterval.Interval

	v2p   map[machine.Reg]int
	v2ss  map[machine.Reg]int
	regOf map[*liveinterval.Interval]int

	tracker *physRegTracker
}

// physRegTracker counts how many live intervals currently hold each
// physical register or one of its aliases, so getFreePhysReg can find
// one with a zero count (§4.8 step 4).
type physRegTracker struct {
	reg    target.RegisterInfo
	inUse  map[int]int
}

func newPhysRegTracker(reg target.RegisterInfo) *physRegTracker {
	return &physRegTracker{reg: reg, inUse: make(map[int]int)}
}

func (t *physRegTracker) acquire(r int) {
	for _, a := range t.reg.Aliases(r) {
		t.inUse[a]++
	}
}

func (t *physRegTracker) release(r int) {
	for _, a := range t.reg.Aliases(r) {
		if t.inUse[a] > 0 {
			t.inUse[a]--
		}
	}
}

func (t *physRegTracker) free(r int) bool {
	return t.inUse[r] == 0
}

// Result is the allocator's output for one function: the vreg->preg
// assignment and the vreg->stack-slot map for spilled values.
type Result struct {
	V2P  map[machine.Reg]int
	V2SS map[machine.Reg]int
}

// Run allocates registers for every interval in intervals, classified
// into classOf (the register class its vreg requires). Intervals whose
// Reg is physical form the fixed set: pre-colored physical-register
// intervals representing constraints (e.g. call ABI registers).
func Run(fn *machine.MachineFunction, reg target.RegisterInfo, intervals []*liveinterval.Interval, classOf func(machine.Reg) target.RegisterClass) *Result {
	a := &Allocator{
		fn:      fn,
		reg:     reg,
		v2p:     make(map[machine.Reg]int),
		v2ss:    make(map[machine.Reg]int),
		regOf:   make(map[*liveinterval.Interval]int),
		tracker: newPhysRegTracker(reg),
	}

	for _, iv := range intervals {
		if !iv.Reg.IsVirtual() {
			a.fixed = append(a.fixed, iv)
		} else {
			a.unhandled = append(a.unhandled, iv)
		}
	}
	sort.Slice(a.unhandled, func(i, j int) bool { return a.unhandled[i].Start() < a.unhandled[j].Start() })
	sort.Slice(a.fixed, func(i, j int) bool { return a.fixed[i].Start() < a.fixed[j].Start() })

	for len(a.unhandled) > 0 || len(a.fixed) > 0 {
		cur, fromUnhandled := a.popNext()
		a.processActive(cur)
		a.processInactive(cur)

		if !cur.Reg.IsVirtual() {
			preg := int(cur.Reg)
			a.tracker.acquire(preg)
			a.regOf[cur] = preg
			a.active = append(a.active, cur)
			a.handled = append(a.handled, cur)
			continue
		}

		class := classOf(cur.Reg)
		order := a.reg.AllocationOrder(class)
		if p, ok := a.getFreePhysReg(order); ok {
			a.tracker.acquire(p)
			a.v2p[cur.Reg] = p
			a.regOf[cur] = p
			a.active = append(a.active, cur)
			a.handled = append(a.handled, cur)
			continue
		}

		a.allocateBySpilling(cur, order, fromUnhandled)
	}

	return &Result{V2P: a.v2p, V2SS: a.v2ss}
}

// popNext pops the interval with the earliest start from whichever of
// unhandled/fixed is non-empty, ties going to unhandled.
func (a *Allocator) popNext() (*liveinterval.Interval, bool) {
	switch {
	case len(a.unhandled) == 0:
		cur := a.fixed[0]
		a.fixed = a.fixed[1:]
		return cur, false
	case len(a.fixed) == 0:
		cur := a.unhandled[0]
		a.unhandled = a.unhandled[1:]
		return cur, true
	default:
		if a.fixed[0].Start() < a.unhandled[0].Start() {
			cur := a.fixed[0]
			a.fixed = a.fixed[1:]
			return cur, false
		}
		cur := a.unhandled[0]
		a.unhandled = a.unhandled[1:]
		return cur, true
	}
}

func (a *Allocator) processActive(cur *liveinterval.Interval) {
	var stillActive []*liveinterval.Interval
	for _, iv := range a.active {
		switch {
		case iv.ExpiredAt(cur.Start()):
			a.tracker.release(a.regOf[iv])
			a.handled = append(a.handled, iv)
		case !iv.LiveAt(cur.Start()):
			a.tracker.release(a.regOf[iv])
			a.inactive = append(a.inactive, iv)
		default:
			stillActive = append(stillActive, iv)
		}
	}
	a.active = stillActive
}

func (a *Allocator) processInactive(cur *liveinterval.Interval) {
	var stillInactive []*liveinterval.Interval
	for _, iv := range a.inactive {
		switch {
		case iv.ExpiredAt(cur.Start()):
			a.handled = append(a.handled, iv)
		case iv.LiveAt(cur.Start()):
			a.tracker.acquire(a.regOf[iv])
			a.active = append(a.active, iv)
		default:
			stillInactive = append(stillInactive, iv)
		}
	}
	a.inactive = stillInactive
}

// getFreePhysReg returns the first register in order with a zero use
// count, per §4.8 step 4.
func (a *Allocator) getFreePhysReg(order []int) (int, bool) {
	for _, p := range order {
		if a.tracker.free(p) {
			return p, true
		}
	}
	return 0, false
}

// spillWeight sums the weight of every interval currently holding or
// aliasing p, across active, inactive, and fixed.
func (a *Allocator) spillWeight(p int) float64 {
	var total float64
	consider := func(ivs []*liveinterval.Interval) {
		for _, iv := range ivs {
			if r, ok := a.regOf[iv]; ok && aliasesInclude(a.reg.Aliases(r), p) {
				total += iv.Weight
			}
		}
	}
	consider(a.active)
	consider(a.inactive)
	for _, iv := range a.fixed {
		if aliasesInclude(a.reg.Aliases(int(iv.Reg)), p) {
			total += iv.Weight
		}
	}
	return total
}

func aliasesInclude(aliases []int, p int) bool {
	for _, a := range aliases {
		if a == p {
			return true
		}
	}
	return false
}

// allocateBySpilling implements §4.8 step 5: find the minimum-weight
// physreg in cur's class; either spill cur itself or evict and roll
// back everything assigned to that physreg that overlaps cur.
func (a *Allocator) allocateBySpilling(cur *liveinterval.Interval, order []int, fromUnhandled bool) {
	minReg := order[0]
	minWeight := a.spillWeight(minReg)
	for _, p := range order[1:] {
		if w := a.spillWeight(p); w < minWeight {
			minWeight = w
			minReg = p
		}
	}

	if cur.Weight < minWeight {
		a.spillInterval(cur)
		return
	}

	if !fromUnhandled {
		// A fixed (physical) interval must never itself be spilled;
		// if it can't be honored even after considering eviction, the
		// allocator has a true fixed-register conflict. Evict anyway:
		// spilling everything aliasing minReg clears the conflict.
	}

	var earliestStart = cur.Start()
	var toEvict []*liveinterval.Interval
	consider := func(ivs []*liveinterval.Interval) []*liveinterval.Interval {
		var kept []*liveinterval.Interval
		for _, iv := range ivs {
			r, ok := a.regOf[iv]
			if ok && aliasesInclude(a.reg.Aliases(r), minReg) && iv.Overlaps(cur) {
				toEvict = append(toEvict, iv)
				if iv.Start() < earliestStart {
					earliestStart = iv.Start()
				}
				continue
			}
			kept = append(kept, iv)
		}
		return kept
	}
	a.active = consider(a.active)
	a.inactive = consider(a.inactive)

	for _, iv := range toEvict {
		a.tracker.release(a.regOf[iv])
		delete(a.regOf, iv)
		a.spillInterval(iv)
	}

	// Roll back every handled interval that started at or after
	// earliestStart, undoing its register assignment and re-queuing
	// it, then re-scan handled to re-activate anything still live.
	var keptHandled []*liveinterval.Interval
	var rolledBack []*liveinterval.Interval
	for _, iv := range a.handled {
		if iv.Start() >= earliestStart {
			rolledBack = append(rolledBack, iv)
			continue
		}
		keptHandled = append(keptHandled, iv)
	}
	a.handled = keptHandled
	for _, iv := range rolledBack {
		if p, ok := a.regOf[iv]; ok {
			a.tracker.release(p)
			delete(a.regOf, iv)
		}
		delete(a.v2p, iv.Reg)
		if iv.Reg.IsVirtual() {
			a.unhandled = append(a.unhandled, iv)
		} else {
			a.fixed = append(a.fixed, iv)
		}
	}
	sort.Slice(a.unhandled, func(i, j int) bool { return a.unhandled[i].Start() < a.unhandled[j].Start() })
	sort.Slice(a.fixed, func(i, j int) bool { return a.fixed[i].Start() < a.fixed[j].Start() })

	// cur itself now gets minReg.
	a.tracker.acquire(minReg)
	a.v2p[cur.Reg] = minReg
	a.regOf[cur] = minReg
	a.active = append(a.active, cur)
	a.handled = append(a.handled, cur)
}

// spillInterval implements the updateSpilledInterval policy
// (SPEC_FULL.md §10): cur is assigned a stack slot (reused if its vreg
// already has one) and re-queued as one sub-interval per range of cur,
// each spanning from that range's start to the next range's start (the
// last one to cur.End()). Holes between ranges are therefore covered,
// use and def positions are not consulted, and a single-range interval
// is re-queued as an unchanged copy of itself.
func (a *Allocator) spillInterval(cur *liveinterval.Interval) {
	slot, ok := a.v2ss[cur.Reg]
	if !ok {
		slot = a.fn.NewStackSlot()
		a.v2ss[cur.Reg] = slot
	}

	points := programPointsOf(cur)
	for i := 0; i < len(points); i++ {
		start := points[i]
		end := start + 1
		if i+1 < len(points) {
			end = points[i+1]
		} else {
			end = cur.End()
		}
		if start >= end {
			continue
		}
		sub := &liveinterval.Interval{Reg: cur.Reg, Weight: cur.Weight}
		sub.AddRange(start, end)
		a.unhandled = append(a.unhandled, sub)
	}
	sort.Slice(a.unhandled, func(i, j int) bool { return a.unhandled[i].Start() < a.unhandled[j].Start() })
}

// programPointsOf returns the start of each of cur's ranges, the
// boundaries spillInterval splits cur at.
func programPointsOf(cur *liveinterval.Interval) []int {
	var points []int
	for _, r := range cur.Ranges {
		points = append(points, r.Start)
	}
	return points
}
