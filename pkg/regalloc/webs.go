package regalloc

import (
	"slices"

	"github.com/raymyers/ralph-mips/pkg/cfg"
)

// NoColor marks a web that was not assigned a register
const NoColor = -1

// Web is the live range of one non-global variable: every instruction after
// which the variable is live, plus every instruction that defines it. Webs
// are grouped by name, not by definition site.
type Web struct {
	Name    string
	IsFloat bool
	Instrs  Set[int] // indices into Function.Code
	Color   int
}

// Colored reports whether the web was assigned a register
func (w *Web) Colored() bool {
	return w.Color != NoColor
}

// Webs maps variable names to their webs
type Webs map[string]*Web

// Names returns the web names in ascending order
func (ws Webs) Names() []string {
	names := make([]string, 0, len(ws))
	for n := range ws {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// BuildWebs groups, per variable, the instructions at which it is live out.
// An instruction that defines a variable also belongs to its web, so that a
// dead definition still conflicts with everything live across it.
// Global variables and arrays never get a web: both live in the data
// section.
func BuildWebs(prog *cfg.Program, fn *cfg.Function, live *LivenessInfo) Webs {
	webs := make(Webs)
	add := func(v string, i int) {
		if prog.IsGlobal(v) || fn.IsArray(v) {
			return
		}
		w := webs[v]
		if w == nil {
			w = &Web{Name: v, IsFloat: fn.IsFloat(v), Instrs: NewSet[int](), Color: NoColor}
			webs[v] = w
		}
		w.Instrs.Add(i)
	}
	for i, out := range live.LiveOut {
		for v := range out {
			add(v, i)
		}
		for v := range live.Def[i] {
			add(v, i)
		}
	}
	return webs
}
