package regalloc

import (
	"log/slog"

	"github.com/raymyers/ralph-mips/pkg/cfg"
)

// LivenessInfo holds instruction-granularity liveness for one function.
// All slices are indexed by instruction position in Function.Code.
type LivenessInfo struct {
	Def     []VarSet
	Use     []VarSet
	LiveOut []VarSet
	// Passes is the number of full passes the fixpoint took, including the
	// final pass that changed nothing
	Passes int
}

// LiveIn returns the variables live immediately before instruction i
func (l *LivenessInfo) LiveIn(i int) VarSet {
	return l.Use[i].Union(l.LiveOut[i].Minus(l.Def[i]))
}

// ComputeDefUse classifies, per instruction, the declared variables it
// defines and uses. Immediates, labels, function names and undeclared names
// are ignored.
func ComputeDefUse(fn *cfg.Function) (def, use []VarSet) {
	def = make([]VarSet, len(fn.Code))
	use = make([]VarSet, len(fn.Code))
	for i, ins := range fn.Code {
		def[i] = NewVarSet()
		use[i] = NewVarSet()
		for _, v := range ins.Defs() {
			if fn.IsVar(v) {
				def[i].Add(v)
			}
		}
		for _, v := range ins.Uses() {
			if fn.IsVar(v) {
				use[i].Add(v)
			}
		}
	}
	return def, use
}

// AnalyzeLiveness computes live-out sets per instruction by iterating
//
//	liveout(n) = ∪ over s in succ(n) of use(s) ∪ (liveout(s) − def(s))
//
// to a fixpoint. The successor of an instruction is the next one in its
// block; the successors of a block's last instruction are the first
// instructions of the block's CFG successors.
func AnalyzeLiveness(fn *cfg.Function) *LivenessInfo {
	def, use := ComputeDefUse(fn)
	info := &LivenessInfo{
		Def:     def,
		Use:     use,
		LiveOut: make([]VarSet, len(fn.Code)),
	}
	for i := range info.LiveOut {
		info.LiveOut[i] = NewVarSet()
	}

	for info.update(fn) {
	}
	slog.Debug("instruction liveness converged", "function", fn.Name, "passes", info.Passes)
	return info
}

// update makes one pass over every instruction and reports whether any
// live-out set changed
func (l *LivenessInfo) update(fn *cfg.Function) bool {
	l.Passes++
	changed := false
	for _, b := range fn.Blocks {
		for i := b.Start; i < b.End; i++ {
			out := NewVarSet()
			for _, s := range instrSuccs(fn, b, i) {
				for v := range l.Use[s] {
					out.Add(v)
				}
				for v := range l.LiveOut[s] {
					if !l.Def[s].Contains(v) {
						out.Add(v)
					}
				}
			}
			if !out.Equal(l.LiveOut[i]) {
				l.LiveOut[i] = out
				changed = true
			}
		}
	}
	return changed
}

func instrSuccs(fn *cfg.Function, b *cfg.Block, i int) []int {
	if i < b.Last() {
		return []int{i + 1}
	}
	succs := make([]int, 0, len(b.Succs))
	for _, id := range b.Succs {
		succs = append(succs, fn.Blocks[id].Start)
	}
	return succs
}

// BlockLiveness holds block-granularity liveness for one function.
// All slices are indexed by cfg.BlockID.
type BlockLiveness struct {
	// Def and Use aggregate the defs and uses of every instruction in the block
	Def []VarSet
	Use []VarSet
	// UseCount counts each operand occurrence of a variable in the block
	UseCount []map[string]int
	LiveOut  []VarSet
	Passes   int
}

// AnalyzeBlockLiveness computes live-out sets per basic block with the same
// dataflow equation as AnalyzeLiveness, using the block-aggregated def and
// use sets.
func AnalyzeBlockLiveness(fn *cfg.Function) *BlockLiveness {
	n := len(fn.Blocks)
	bl := &BlockLiveness{
		Def:      make([]VarSet, n),
		Use:      make([]VarSet, n),
		UseCount: make([]map[string]int, n),
		LiveOut:  make([]VarSet, n),
	}
	for _, b := range fn.Blocks {
		bl.Def[b.ID] = NewVarSet()
		bl.Use[b.ID] = NewVarSet()
		bl.UseCount[b.ID] = make(map[string]int)
		bl.LiveOut[b.ID] = NewVarSet()
		for _, ins := range fn.Instructions(b) {
			for _, v := range ins.Defs() {
				if fn.IsVar(v) {
					bl.Def[b.ID].Add(v)
				}
			}
			for _, v := range ins.Uses() {
				if fn.IsVar(v) {
					bl.Use[b.ID].Add(v)
					bl.UseCount[b.ID][v]++
				}
			}
		}
	}

	for bl.update(fn) {
	}
	slog.Debug("block liveness converged", "function", fn.Name, "passes", bl.Passes)
	return bl
}

func (bl *BlockLiveness) update(fn *cfg.Function) bool {
	bl.Passes++
	changed := false
	for _, b := range fn.Blocks {
		out := NewVarSet()
		for _, s := range b.Succs {
			for v := range bl.Use[s] {
				out.Add(v)
			}
			for v := range bl.LiveOut[s] {
				if !bl.Def[s].Contains(v) {
					out.Add(v)
				}
			}
		}
		if !out.Equal(bl.LiveOut[b.ID]) {
			bl.LiveOut[b.ID] = out
			changed = true
		}
	}
	return changed
}
