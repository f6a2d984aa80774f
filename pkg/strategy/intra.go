package strategy

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/regalloc"
)

// IntraBlock loads the K most-used integer variables of a block into saved
// registers when the block is entered, and writes back the ones the block
// modified and that are live out when it is left.
type IntraBlock struct {
	out      Emitter
	k        int
	prog     *cfg.Program
	fn       *cfg.Function
	live     *regalloc.BlockLiveness
	fallback *Naive

	// assigned maps the working set of the current block to register numbers
	assigned map[string]int
	// committed is set once ExitBlock has written the working set back
	committed bool
}

// NewIntraBlock creates an IntraBlock strategy with k registers
func NewIntraBlock(out Emitter, k int) *IntraBlock {
	return &IntraBlock{out: out, k: k, fallback: NewNaive(out)}
}

func (s *IntraBlock) Process(prog *cfg.Program, fn *cfg.Function) {
	s.prog = prog
	s.fn = fn
	s.fallback.Process(prog, fn)
	s.live = regalloc.AnalyzeBlockLiveness(fn)
	s.assigned = make(map[string]int)
	s.committed = false
}

func (s *IntraBlock) NumVariables() int {
	return s.fn.NumVariables()
}

func (s *IntraBlock) EnterFunction()                  {}
func (s *IntraBlock) Spill(b *cfg.Block, instr int)   {}
func (s *IntraBlock) Unspill(b *cfg.Block, instr int) {}

// WorkingSet returns the variables block b keeps in registers, most used
// first, ties by name
func (s *IntraBlock) WorkingSet(b *cfg.Block) []string {
	counts := s.live.UseCount[b.ID]
	var vars []string
	for v := range counts {
		// Globals and arrays stay in memory and floats have no saved
		// registers
		if s.fn.IsInt(v) && !s.prog.IsGlobal(v) && !s.fn.IsArray(v) {
			vars = append(vars, v)
		}
	}
	slices.SortFunc(vars, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(vars) > s.k {
		vars = vars[:s.k]
	}
	return vars
}

func (s *IntraBlock) EnterBlock(b *cfg.Block) {
	s.assigned = make(map[string]int)
	s.committed = false

	s.out.Comment("start of block - loading into registers")
	for i, v := range s.WorkingSet(b) {
		s.out.Comment(fmt.Sprintf("variable %s is assigned register %s", v, asm.Saved(i)))
		s.assigned[v] = i
		s.fallback.RegisterFor(v, asm.Saved(i))
	}
}

func (s *IntraBlock) ExitBlock(b *cfg.Block) {
	s.out.Comment("begin spilling")
	// Only variables this block changed and a successor reads
	for _, v := range s.assignedNames() {
		if !s.live.Def[b.ID].Contains(v) || !s.live.LiveOut[b.ID].Contains(v) {
			continue
		}
		s.fallback.Store(asm.Saved(s.assigned[v]), v)
	}
	s.out.Comment("end of block")
	s.committed = true
}

func (s *IntraBlock) assignedNames() []string {
	names := make([]string, 0, len(s.assigned))
	for v := range s.assigned {
		names = append(names, v)
	}
	slices.Sort(names)
	return names
}

func (s *IntraBlock) RegisterFor(variable, suggested string) string {
	r, ok := s.assigned[variable]
	if !ok {
		return s.fallback.RegisterFor(variable, suggested)
	}
	reg := asm.Saved(r)
	if asm.IsArgOrReturn(suggested) {
		s.out.Commented("move of "+variable+" to fn arg/ret", "move", suggested, reg)
		return suggested
	}
	return reg
}

func (s *IntraBlock) Store(src, variable string) {
	r, ok := s.assigned[variable]
	if !ok {
		s.fallback.Store(src, variable)
		return
	}
	if s.committed {
		// The working set is already written back: the value goes to memory
		// and the register copy is stale from here on
		delete(s.assigned, variable)
		s.fallback.Store(src, variable)
		return
	}
	if asm.IsRegister(src) {
		s.out.Instr("move", asm.Saved(r), src)
	} else {
		s.out.Instr("li", asm.Saved(r), src)
	}
}

func (s *IntraBlock) ComputeAndStore(op, dest, a, b string) {
	r, ok := s.assigned[dest]
	if !ok || s.committed {
		delete(s.assigned, dest)
		s.fallback.ComputeAndStore(op, dest, a, b)
		return
	}
	s.out.Instr(op, asm.Saved(r), a, b)
}
