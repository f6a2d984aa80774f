package strategy

import (
	"fmt"
	"slices"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/regalloc"
)

// Global assigns each colored web one saved register for the whole
// function. Colored webs live across a call are saved to their stack slots
// before the call and reloaded after it.
type Global struct {
	out      Emitter
	k        int
	prog     *cfg.Program
	fn       *cfg.Function
	alloc    *regalloc.Allocation
	fallback *Naive
}

// NewGlobal creates a Global strategy with k registers
func NewGlobal(out Emitter, k int) *Global {
	return &Global{out: out, k: k, fallback: NewNaive(out)}
}

func (g *Global) Process(prog *cfg.Program, fn *cfg.Function) {
	g.prog = prog
	g.fn = fn
	g.fallback.Process(prog, fn)
	g.alloc = regalloc.AllocateFunction(prog, fn, g.k)
}

// Allocation returns the coloring of the current function
func (g *Global) Allocation() *regalloc.Allocation {
	return g.alloc
}

func (g *Global) NumVariables() int {
	return g.fn.NumVariables()
}

func (g *Global) EnterFunction() {
	g.out.Comment("enter " + g.fn.Name)
	for _, name := range g.alloc.Webs.Names() {
		w := g.alloc.Webs[name]
		if w.Colored() {
			g.out.Comment(fmt.Sprintf("variable %s assigned register %s", name, asm.Saved(w.Color)))
		} else {
			g.out.Comment(fmt.Sprintf("variable %s is spilled!", name))
		}
	}
}

func (g *Global) EnterBlock(b *cfg.Block) {}
func (g *Global) ExitBlock(b *cfg.Block)  {}

// liveAcross returns the colored webs whose value must survive the call at
// instr. The call's own result is excluded.
func (g *Global) liveAcross(instr int) []*regalloc.Web {
	defs := g.fn.Code[instr].Defs()
	var out []*regalloc.Web
	for _, w := range g.alloc.LiveAt(instr) {
		if !slices.Contains(defs, w.Name) {
			out = append(out, w)
		}
	}
	return out
}

func (g *Global) Spill(b *cfg.Block, instr int) {
	g.out.Comment("spilling for jal")
	for _, w := range g.liveAcross(instr) {
		g.fallback.Store(asm.Saved(w.Color), w.Name)
	}
}

func (g *Global) Unspill(b *cfg.Block, instr int) {
	g.out.Comment("unspilling")
	for _, w := range g.liveAcross(instr) {
		g.fallback.RegisterFor(w.Name, asm.Saved(w.Color))
	}
}

func (g *Global) RegisterFor(variable, suggested string) string {
	c, ok := g.alloc.Register(variable)
	if !ok {
		// Globals have no web and always come from memory
		return g.fallback.RegisterFor(variable, suggested)
	}
	reg := asm.Saved(c)
	if asm.IsArgOrReturn(suggested) {
		g.out.Commented("move of "+variable+" to fn arg/ret", "move", suggested, reg)
		return suggested
	}
	return reg
}

func (g *Global) Store(src, variable string) {
	c, ok := g.alloc.Register(variable)
	if !ok {
		g.fallback.Store(src, variable)
		return
	}
	if asm.IsRegister(src) {
		g.out.Commented("store to "+variable, "move", asm.Saved(c), src)
	} else {
		g.out.Commented("store to "+variable, "li", asm.Saved(c), src)
	}
}

func (g *Global) ComputeAndStore(op, dest, a, b string) {
	c, ok := g.alloc.Register(dest)
	if !ok {
		g.fallback.ComputeAndStore(op, dest, a, b)
		return
	}
	g.out.Instr(op, asm.Saved(c), a, b)
}
