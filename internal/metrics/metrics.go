// Package metrics tracks per-pass modification counts across a
// pipeline run and renders a colorized teardown report, in the style
// of the teacher's diagnostic reporter.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/segmentio/ksuid"
)

// Counters accumulates, per pass name, how many times it ran and how
// many of those runs reported a modification.
type Counters struct {
	RunID string

	runs     map[string]int
	modified map[string]int
	order    []string
}

// NewCounters creates an empty counter set tagged with a fresh ksuid
// run identifier, so repeated pipeline invocations in the same process
// (or across log lines) are distinguishable.
func NewCounters() *Counters {
	return &Counters{
		RunID:    ksuid.New().String(),
		runs:     make(map[string]int),
		modified: make(map[string]int),
	}
}

// Record logs one execution of pass name, noting whether it modified
// its input.
func (c *Counters) Record(name string, didModify bool) {
	if _, seen := c.runs[name]; !seen {
		c.order = append(c.order, name)
	}
	c.runs[name]++
	if didModify {
		c.modified[name]++
	}
}

// Runs returns how many times name ran.
func (c *Counters) Runs(name string) int { return c.runs[name] }

// Modified returns how many of name's runs reported a change.
func (c *Counters) Modified(name string) int { return c.modified[name] }

// Names returns every recorded pass name in first-seen order.
func (c *Counters) Names() []string {
	return append([]string{}, c.order...)
}

// Report renders a colorized teardown summary: one line per pass,
// sorted by modification count descending, ties kept in first-seen
// order, with the run ID as a dim header.
func (c *Counters) Report() string {
	var b strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	changedColor := color.New(color.FgGreen).SprintFunc()
	idleColor := color.New(color.FgYellow).SprintFunc()

	b.WriteString(fmt.Sprintf("%s %s\n", bold("pipeline run"), dim(c.RunID)))

	names := c.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return c.modified[names[i]] > c.modified[names[j]]
	})

	for _, name := range names {
		runs := c.runs[name]
		mod := c.modified[name]
		label := idleColor("idle")
		if mod > 0 {
			label = changedColor(fmt.Sprintf("%d/%d modified", mod, runs))
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n", dim("-"), bold(name), label))
	}
	return b.String()
}
