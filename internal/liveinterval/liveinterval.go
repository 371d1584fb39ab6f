// Package liveinterval builds per-register live intervals over
// numbered machine IR (§4.7), the input to linear-scan allocation.
package liveinterval

import (
	"math"
	"sort"

	"ssacore/internal/machine"
	"ssacore/internal/target"
)

// Range is a half-open program-point interval [Start, End).
type Range struct {
	Start, End int
}

// Interval is the live range of one register, as a sorted, merged
// list of Ranges, plus its spill weight.
type Interval struct {
	Reg    machine.Reg
	Ranges []Range
	Weight float64
}

// Start returns the interval's first program point.
func (iv *Interval) Start() int {
	if len(iv.Ranges) == 0 {
		return -1
	}
	return iv.Ranges[0].Start
}

// End returns the exclusive end of the interval's last range, one past
// its last covered program point.
func (iv *Interval) End() int {
	if len(iv.Ranges) == 0 {
		return -1
	}
	return iv.Ranges[len(iv.Ranges)-1].End
}

// Overlaps reports whether iv and other share any program point.
func (iv *Interval) Overlaps(other *Interval) bool {
	i, j := 0, 0
	for i < len(iv.Ranges) && j < len(other.Ranges) {
		a, b := iv.Ranges[i], other.Ranges[j]
		if a.Start < b.End && b.Start < a.End {
			return true
		}
		if a.End <= b.End {
			i++
		} else {
			j++
		}
	}
	return false
}

// LiveAt reports whether iv covers program point p.
func (iv *Interval) LiveAt(p int) bool {
	for _, r := range iv.Ranges {
		if p >= r.Start && p < r.End {
			return true
		}
		if p < r.Start {
			break
		}
	}
	return false
}

// ExpiredAt reports whether iv's live range has entirely ended by p.
func (iv *Interval) ExpiredAt(p int) bool {
	return iv.End() <= p
}

// AddRange merges [start,end) into iv.Ranges, coalescing overlaps and
// abutments. Exported for use by regalloc when constructing the
// tightened sub-intervals a spill produces.
func (iv *Interval) AddRange(start, end int) { iv.addRange(start, end) }

// addRange merges [start,end) into iv.Ranges, coalescing overlaps and
// abutments, keeping the list sorted.
func (iv *Interval) addRange(start, end int) {
	if start >= end {
		return
	}
	all := append(append([]Range{}, iv.Ranges...), Range{Start: start, End: end})
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	iv.Ranges = coalesce(all)
}

func coalesce(rs []Range) []Range {
	if len(rs) == 0 {
		return rs
	}
	out := []Range{rs[0]}
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Build computes live intervals for every register defined or used in
// f, given blockDepth (loop nesting depth per block, for weighting)
// and reg (whose Aliases supplies a physical register's aliases). Block
// liveness (which registers are live across the whole block) must
// already be known to the caller via live-in sets keyed by block; here
// we derive it structurally from def/use positions plus cross-block
// liveness passed in liveIn.
func Build(f *machine.MachineFunction, reg target.RegisterInfo, blockDepth map[*machine.MachineBlock]int, liveIn map[*machine.MachineBlock]map[machine.Reg]bool) map[machine.Reg]*Interval {
	intervals := make(map[machine.Reg]*Interval)
	get := func(r machine.Reg) *Interval {
		iv, ok := intervals[r]
		if !ok {
			iv = &Interval{Reg: r}
			intervals[r] = iv
		}
		return iv
	}

	for _, b := range f.Blocks {
		start := b.StartIndex()
		end := b.EndIndex()
		if start < 0 {
			continue
		}
		depth := blockDepth[b]
		weight := math.Pow(10, float64(depth))

		// Every register live-in to this block spans at least the
		// whole block (§4.7 step 2, "alive block" contribution).
		for r := range liveIn[b] {
			get(r).addRange(start, end)
		}

		lastDef := make(map[machine.Reg]int)
		for _, mi := range b.Instrs {
			for _, r := range mi.Uses() {
				iv := get(r)
				from := start
				if d, ok := lastDef[r]; ok {
					from = d
				}
				iv.addRange(from, mi.Index+1)
				iv.Weight += weight
			}
			for _, r := range mi.Defs() {
				lastDef[r] = mi.Index
				iv := get(r)
				iv.addRange(mi.Index, mi.Index+1)
				iv.Weight += weight
			}
		}
		// Every register defined in the block extends from its last
		// def to the block's end. Whether a later use in the block was
		// its last (a kill) is not checked, so killed registers are
		// extended too.
		for r, d := range lastDef {
			get(r).addRange(d, end)
		}
	}

	// Physical-register intervals (below FirstVirtualRegister) get
	// infinite weight and absorb their aliases' ranges (§4.7 step 3/4).
	for r, iv := range intervals {
		if !r.IsVirtual() {
			iv.Weight = math.Inf(1)
			for _, alias := range reg.Aliases(int(r)) {
				if ar, ok := intervals[machine.Reg(alias)]; ok && ar != iv {
					for _, rg := range ar.Ranges {
						iv.addRange(rg.Start, rg.End)
					}
				}
			}
		}
	}

	return intervals
}

// Sorted returns the intervals sorted by start index, the order
// linear-scan consumes (§4.7 "Sort resulting intervals by start
// index").
func Sorted(intervals map[machine.Reg]*Interval) []*Interval {
	out := make([]*Interval, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start() < out[j].Start() })
	return out
}
