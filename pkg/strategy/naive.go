package strategy

import (
	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
)

// Naive keeps every variable in memory: each use loads it into the
// suggested register and each definition stores it back.
type Naive struct {
	out  Emitter
	prog *cfg.Program
	fn   *cfg.Function
}

// NewNaive creates a Naive strategy writing into out
func NewNaive(out Emitter) *Naive {
	return &Naive{out: out}
}

func (n *Naive) Process(prog *cfg.Program, fn *cfg.Function) {
	n.prog = prog
	n.fn = fn
}

func (n *Naive) NumVariables() int {
	return n.fn.NumVariables()
}

func (n *Naive) EnterFunction()                  {}
func (n *Naive) EnterBlock(b *cfg.Block)         {}
func (n *Naive) ExitBlock(b *cfg.Block)          {}
func (n *Naive) Spill(b *cfg.Block, instr int)   {}
func (n *Naive) Unspill(b *cfg.Block, instr int) {}

// location returns the memory operand of variable. Globals are addressed by
// symbol, locals by their $sp-relative slot.
func (n *Naive) location(variable string) (loc string, isFloat bool) {
	if n.prog.IsGlobal(variable) {
		return variable, n.fn.IsFloat(variable)
	}
	offset, isFloat, ok := n.fn.Slot(variable)
	if !ok {
		panic(&SlotError{Function: n.fn.Name, Variable: variable})
	}
	return asm.StackSlot(offset), isFloat
}

func (n *Naive) RegisterFor(variable, suggested string) string {
	loc, isFloat := n.location(variable)
	op := "lw"
	if isFloat {
		op = "l.s"
	}
	n.out.Commented("load from "+variable, op, suggested, loc)
	return suggested
}

func (n *Naive) Store(src, variable string) {
	loc, isFloat := n.location(variable)
	r := src
	if !asm.IsRegister(src) {
		// An immediate has to go through a scratch register
		if isFloat {
			n.out.Instr("li.s", asm.F0, src)
			r = asm.F0
		} else {
			n.out.Instr("li", asm.T0, src)
			r = asm.T0
		}
	}
	op := "sw"
	if isFloat {
		op = "s.s"
	}
	n.out.Commented("store to "+variable, op, r, loc)
}

func (n *Naive) ComputeAndStore(op, dest, a, b string) {
	to := asm.T2
	if n.fn.IsFloat(dest) {
		to = asm.F4
	}
	n.out.Instr(op, to, a, b)
	n.Store(to, dest)
}
