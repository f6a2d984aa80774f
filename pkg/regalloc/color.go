package regalloc

import (
	"log/slog"

	"github.com/raymyers/ralph-mips/pkg/cfg"
)

// DefaultRegisters is the default size of the register palette
const DefaultRegisters = 8

// Allocator colors an interference graph with K colors using Chaitin's
// simplify/select scheme with Briggs' optimistic spilling: a node that cannot
// be simplified is still pushed and may find a free color on select.
type Allocator struct {
	graph *InterferenceGraph
	webs  Webs
	K     int // Number of allocatable registers

	work        *InterferenceGraph // graph being simplified
	selectStack []string           // Stack of webs removed during simplify/spill
	spilled     VarSet
}

// Allocation holds the result of allocating one function
type Allocation struct {
	Liveness *LivenessInfo
	Webs     Webs
	Graph    *InterferenceGraph
	// Spilled is the set of webs left without a color
	Spilled VarSet
	K       int
}

// NewAllocator creates a new allocator over a graph of webs
func NewAllocator(graph *InterferenceGraph, webs Webs, k int) *Allocator {
	return &Allocator{
		graph:   graph,
		webs:    webs,
		K:       k,
		spilled: NewVarSet(),
	}
}

// Allocate colors the webs in place and returns the spilled ones
func (a *Allocator) Allocate() VarSet {
	a.work = a.graph.Copy()
	a.selectStack = a.selectStack[:0]
	a.spilled = NewVarSet()

	for _, n := range a.webs.Names() {
		w := a.webs[n]
		w.Color = NoColor
		// The palette is the integer register file
		if w.IsFloat {
			a.work.RemoveNode(n)
			a.spilled.Add(n)
		}
	}

	for len(a.work.Nodes) > 0 {
		if n, ok := a.simplifyCandidate(); ok {
			a.push(n)
			continue
		}
		n := a.spillCandidate()
		slog.Debug("optimistic spill candidate", "web", n, "degree", a.work.Degree(n))
		a.push(n)
	}

	a.assignColors()
	return a.spilled
}

// simplifyCandidate returns the lowest-named web of degree < K
func (a *Allocator) simplifyCandidate() (string, bool) {
	for _, n := range a.work.Nodes.Sorted() {
		if a.work.Degree(n) < a.K {
			return n, true
		}
	}
	return "", false
}

// spillCandidate returns the web of highest remaining degree, lowest name
// first among equals
func (a *Allocator) spillCandidate() string {
	best, bestDeg := "", -1
	for _, n := range a.work.Nodes.Sorted() {
		if d := a.work.Degree(n); d > bestDeg {
			best, bestDeg = n, d
		}
	}
	return best
}

func (a *Allocator) push(n string) {
	a.selectStack = append(a.selectStack, n)
	a.work.RemoveNode(n)
}

func (a *Allocator) assignColors() {
	// Pop webs from the select stack and give each the lowest color
	// not held by an already-colored neighbor
	for len(a.selectStack) > 0 {
		top := len(a.selectStack) - 1
		n := a.selectStack[top]
		a.selectStack = a.selectStack[:top]

		used := make(map[int]bool)
		for neighbor := range a.graph.Edges[n] {
			if w := a.webs[neighbor]; w != nil && w.Colored() {
				used[w.Color] = true
			}
		}

		web := a.webs[n]
		for c := 0; c < a.K; c++ {
			if used[c] {
				continue
			}
			web.Color = c
			break
		}

		if web.Colored() {
			slog.Debug("assign color", "web", n, "color", web.Color)
		} else {
			a.spilled.Add(n)
			slog.Debug("web spilled", "web", n)
		}
	}
}

// AllocateFunction runs liveness, web construction, interference and
// coloring for one function
func AllocateFunction(prog *cfg.Program, fn *cfg.Function, k int) *Allocation {
	liveness := AnalyzeLiveness(fn)
	webs := BuildWebs(prog, fn, liveness)
	graph := BuildInterferenceGraph(webs)
	spilled := NewAllocator(graph, webs, k).Allocate()
	return &Allocation{
		Liveness: liveness,
		Webs:     webs,
		Graph:    graph,
		Spilled:  spilled,
		K:        k,
	}
}

// Register returns the color assigned to variable v, if it has one
func (a *Allocation) Register(v string) (int, bool) {
	w, ok := a.Webs[v]
	if !ok || !w.Colored() {
		return NoColor, false
	}
	return w.Color, true
}

// LiveAt returns the colored webs live out of instruction i, by name
func (a *Allocation) LiveAt(i int) []*Web {
	var out []*Web
	for _, n := range a.Webs.Names() {
		w := a.Webs[n]
		if w.Colored() && w.Instrs.Contains(i) {
			out = append(out, w)
		}
	}
	return out
}
